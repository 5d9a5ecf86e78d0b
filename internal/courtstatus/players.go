package courtstatus

import (
	"strings"
	"unicode"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	darkTextColor  = "#000000"
	lightTextColor = "#FFFFFF"
	// CIE L* above which black initials read better than white.
	lightnessThreshold = 0.62
)

var avatarPalette = []string{
	"#F44336",
	"#E91E63",
	"#9C27B0",
	"#3F51B5",
	"#2196F3",
	"#009688",
	"#4CAF50",
	"#FF9800",
}

var paletteTextColors map[string]string

func init() {
	paletteTextColors = make(map[string]string, len(avatarPalette))
	for _, hex := range avatarPalette {
		color, err := colorful.Hex(hex)
		if err != nil {
			panic("invalid avatar palette color: " + hex)
		}
		paletteTextColors[hex] = textColorFor(color)
	}
}

// Initials returns the first letter of the first and last name tokens, or the
// first two characters when the name is a single token.
func Initials(name string) string {
	tokens := strings.Fields(name)
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		runes := []rune(tokens[0])
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return strings.ToUpper(string(runes))
	default:
		first := []rune(tokens[0])[0]
		last := []rune(tokens[len(tokens)-1])[0]
		return string([]rune{unicode.ToUpper(first), unicode.ToUpper(last)})
	}
}

// AvatarColor maps a name onto the palette with a 32-bit rolling hash, so the
// same name always gets the same color.
func AvatarColor(name string) string {
	var hash int32
	for _, r := range name {
		hash = int32(r) + ((hash << 5) - hash)
	}
	index := int64(hash)
	if index < 0 {
		index = -index
	}
	return avatarPalette[index%int64(len(avatarPalette))]
}

// TextColor returns black or white, whichever contrasts with the given avatar
// color. Unknown colors get white.
func TextColor(avatarColor string) string {
	if text, ok := paletteTextColors[avatarColor]; ok {
		return text
	}
	color, err := colorful.Hex(avatarColor)
	if err != nil {
		return lightTextColor
	}
	return textColorFor(color)
}

func textColorFor(color colorful.Color) string {
	lightness, _, _ := color.Lab()
	if lightness > lightnessThreshold {
		return darkTextColor
	}
	return lightTextColor
}
