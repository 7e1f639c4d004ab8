package engine

import "fmt"

// Color is a card color. Wild cards carry ColorWild until played.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorWild   Color = "wild"
)

// BaseColors are the four colors a wild card may be declared as.
var BaseColors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// IsBase reports whether c is one of the four playable colors.
func (c Color) IsBase() bool {
	switch c {
	case ColorRed, ColorBlue, ColorGreen, ColorYellow:
		return true
	}
	return false
}

// Value is a card's rank or action.
type Value string

const (
	Value0       Value = "0"
	Value1       Value = "1"
	Value2       Value = "2"
	Value3       Value = "3"
	Value4       Value = "4"
	Value5       Value = "5"
	Value6       Value = "6"
	Value7       Value = "7"
	Value8       Value = "8"
	Value9       Value = "9"
	ValueSkip    Value = "skip"
	ValueReverse Value = "reverse"
	ValueDraw2   Value = "draw2"
	ValueWild    Value = "wild"
	ValueDraw4   Value = "draw4"
)

// colorValues are the values printed on every base color, in deck order.
var colorValues = []Value{
	Value0, Value1, Value2, Value3, Value4, Value5, Value6, Value7, Value8, Value9,
	ValueSkip, ValueReverse, ValueDraw2,
}

// Card is an immutable card value. Two cards are equal if color and value match.
type Card struct {
	Color Color `json:"color"`
	Value Value `json:"value"`
}

func (c Card) IsWild() bool {
	return c.Color == ColorWild
}

// DrawPenalty returns how many cards the next player is forced to draw.
func (c Card) DrawPenalty() int {
	switch c.Value {
	case ValueDraw2:
		return 2
	case ValueDraw4:
		return 4
	}
	return 0
}

func (c Card) String() string {
	return fmt.Sprintf("%s %s", c.Color, c.Value)
}
