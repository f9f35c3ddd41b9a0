package links

import (
	"strings"

	uaparser "github.com/mileusna/useragent"
)

// UnknownFamily is the bucket for empty or unparsable user agents, in each
// of the three dimensions.
const UnknownFamily = "Unknown"

// UAClassifier classifies raw user-agent strings with mileusna/useragent.
// It is a pure function of its input and safe for concurrent use.
type UAClassifier struct{}

func NewUAClassifier() *UAClassifier { return &UAClassifier{} }

func (c *UAClassifier) Classify(raw string) AgentFamilies {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AgentFamilies{Browser: UnknownFamily, OS: UnknownFamily, Device: UnknownFamily}
	}

	ua := uaparser.Parse(raw)

	out := AgentFamilies{
		Browser: ua.Name,
		OS:      ua.OS,
		Device:  ua.Device,
	}

	if out.Device == "" {
		switch {
		case ua.Bot:
			out.Device = "Bot"
		case ua.Mobile:
			out.Device = "Mobile"
		case ua.Tablet:
			out.Device = "Tablet"
		case ua.Desktop:
			out.Device = "Desktop"
		}
	}

	if out.Browser == "" {
		out.Browser = UnknownFamily
	}
	if out.OS == "" {
		out.OS = UnknownFamily
	}
	if out.Device == "" {
		out.Device = UnknownFamily
	}

	return out
}
