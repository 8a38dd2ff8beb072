package render

// TextStyle captures the font settings used for one kind of line.
type TextStyle struct {
	Bold    bool
	Size    float64
	Leading float64
	Color   string
}

const (
	BodyColor     = "111827"
	SubtitleColor = "4B5563"
	HeadingColor  = "1F2937"
	RuleColor     = "D1D5DB"
)

// StyleMap centralizes the formatting for resume elements.
var StyleMap = map[string]TextStyle{
	"name": {
		Bold:    true,
		Size:    20,
		Leading: 24,
		Color:   BodyColor,
	},
	"subtitle": {
		Size:    10,
		Leading: 14,
		Color:   SubtitleColor,
	},
	"sectionHeading": {
		Bold:    true,
		Size:    11,
		Leading: 14,
		Color:   HeadingColor,
	},
	"body": {
		Size:    10,
		Leading: 14,
		Color:   BodyColor,
	},
}
