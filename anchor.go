package llmcontext

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gowebpki/jcs"
)

// SourceIDPrefix starts every source id and anchor.
const SourceIDPrefix = "src:"

var sourceIDRe = regexp.MustCompile(`^src:[0-9a-f]{8}$`)

// ComputeSourceID derives a deterministic content address for a captured
// item. The {url, content} pair is canonicalized to JCS JSON, SHA-256 hashed,
// and the first 8 hex characters are kept under the "src:" prefix.
//
// The 32-bit id space accepts a real collision probability at scale (~50% at
// ~65k distinct sources). That is fine for a single session's captures;
// widening the hash changes the anchor wire format and must be versioned.
func ComputeSourceID(url string, content any) string {
	payload := struct {
		Content string `json:"content"`
		URL     string `json:"url"`
	}{
		Content: normalizeContent(content),
		URL:     url,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		// Payload is two strings; Marshal cannot fail on it.
		raw = []byte(payload.URL + "\x00" + payload.Content)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}

	sum := sha256.Sum256(canonical)
	return SourceIDPrefix + hex.EncodeToString(sum[:])[:8]
}

// normalizeContent stringifies non-string content so objects and strings hash
// consistently.
func normalizeContent(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprintf("%v", c)
		}
		return string(b)
	}
}

// IsSourceID reports whether s is a well-formed bare source id.
func IsSourceID(s string) bool {
	return sourceIDRe.MatchString(s)
}

// AnchorLocation addresses a position inside a source.
type AnchorLocation struct {
	Page    *PageLocation    `json:"-"`
	Section *SectionLocation `json:"-"`
	Message *MessageLocation `json:"-"`
	Region  *RegionLocation  `json:"-"`
	Other   *OtherLocation   `json:"-"`
}

type LocationType string

const (
	LocationTypePage    LocationType = "page"
	LocationTypeSection LocationType = "section"
	LocationTypeMessage LocationType = "message"
	LocationTypeRegion  LocationType = "region"
)

// Type returns the discriminant of the location. For forward-compatibility
// locations the raw key is the type.
func (l AnchorLocation) Type() LocationType {
	switch {
	case l.Page != nil:
		return LocationTypePage
	case l.Section != nil:
		return LocationTypeSection
	case l.Message != nil:
		return LocationTypeMessage
	case l.Region != nil:
		return LocationTypeRegion
	case l.Other != nil:
		return LocationType(l.Other.Key)
	default:
		return ""
	}
}

// PageLocation addresses a PDF page, 1-based.
type PageLocation struct {
	Page int `json:"page"`
}

// SectionLocation addresses a document section by path, e.g. "2/3/1".
type SectionLocation struct {
	Path string `json:"path"`
}

// MessageLocation addresses a chatlog message by zero-based index.
type MessageLocation struct {
	Index int `json:"index"`
}

// RegionLocation addresses a rectangular area of an image.
type RegionLocation struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// OtherLocation preserves an unrecognized key=value location. Unknown keys
// parse successfully so that newer writers do not break older readers.
type OtherLocation struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewPageLocation creates a page location
func NewPageLocation(page int) *AnchorLocation {
	return &AnchorLocation{Page: &PageLocation{Page: page}}
}

// NewSectionLocation creates a section location
func NewSectionLocation(path string) *AnchorLocation {
	return &AnchorLocation{Section: &SectionLocation{Path: path}}
}

// NewMessageLocation creates a message location
func NewMessageLocation(index int) *AnchorLocation {
	return &AnchorLocation{Message: &MessageLocation{Index: index}}
}

// NewRegionLocation creates a region location
func NewRegionLocation(x, y, w, h int) *AnchorLocation {
	return &AnchorLocation{Region: &RegionLocation{X: x, Y: y, Width: w, Height: h}}
}

// String formats the location in its wire form (without the "#").
func (l AnchorLocation) String() string {
	switch {
	case l.Page != nil:
		return fmt.Sprintf("p=%d", l.Page.Page)
	case l.Section != nil:
		return "sec=" + l.Section.Path
	case l.Message != nil:
		return fmt.Sprintf("msg=%d", l.Message.Index)
	case l.Region != nil:
		return fmt.Sprintf("r=%d,%d,%d,%d", l.Region.X, l.Region.Y, l.Region.Width, l.Region.Height)
	case l.Other != nil:
		return l.Other.Key + "=" + l.Other.Value
	default:
		return ""
	}
}

// NewAnchor builds a citation anchor from a source id and an optional
// location. With a nil location the id itself is the anchor.
func NewAnchor(sourceID string, location *AnchorLocation) string {
	if location == nil {
		return sourceID
	}
	return sourceID + "#" + location.String()
}

// Anchor is the parsed form of a citation anchor.
type Anchor struct {
	SourceID string
	Location *AnchorLocation
}

// ParseAnchor parses a citation anchor. Anchors are machine-generated, never
// user-typed, so malformed input indicates a caller bug and fails hard; only
// unrecognized key=value locations are tolerated for forward compatibility.
func ParseAnchor(anchor string) (*Anchor, error) {
	idPart := anchor
	locPart := ""
	hasLoc := false
	if i := strings.Index(anchor, "#"); i >= 0 {
		idPart = anchor[:i]
		locPart = anchor[i+1:]
		hasLoc = true
	}

	if !strings.HasPrefix(idPart, SourceIDPrefix) {
		return nil, NewInvalidAnchorFormatError(anchor, `anchor must start with "src:"`)
	}
	if !IsSourceID(idPart) {
		return nil, NewInvalidSourceIDError(anchor, "source id hash must be exactly 8 lowercase hex characters")
	}

	parsed := &Anchor{SourceID: idPart}
	if !hasLoc {
		return parsed, nil
	}
	if locPart == "" {
		return nil, NewInvalidAnchorLocationError(anchor, "location after '#' is empty")
	}

	location, err := parseLocation(anchor, locPart)
	if err != nil {
		return nil, err
	}
	parsed.Location = location
	return parsed, nil
}

func parseLocation(anchor, locPart string) (*AnchorLocation, error) {
	eq := strings.Index(locPart, "=")
	if eq <= 0 {
		return nil, NewInvalidAnchorLocationError(anchor, "location must be key=value")
	}
	key := locPart[:eq]
	value := locPart[eq+1:]

	switch key {
	case "p":
		page, err := strconv.Atoi(value)
		if err != nil {
			return nil, NewInvalidAnchorLocationError(anchor, "page must be an integer")
		}
		return NewPageLocation(page), nil
	case "sec":
		if value == "" {
			return nil, NewInvalidAnchorLocationError(anchor, "section path is empty")
		}
		return NewSectionLocation(value), nil
	case "msg":
		index, err := strconv.Atoi(value)
		if err != nil {
			return nil, NewInvalidAnchorLocationError(anchor, "message index must be an integer")
		}
		return NewMessageLocation(index), nil
	case "r":
		fields := strings.Split(value, ",")
		if len(fields) != 4 {
			return nil, NewInvalidAnchorLocationError(anchor, "region must be x,y,w,h")
		}
		nums := make([]int, 4)
		for i, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, NewInvalidAnchorLocationError(anchor, "region coordinates must be integers")
			}
			nums[i] = n
		}
		return NewRegionLocation(nums[0], nums[1], nums[2], nums[3]), nil
	default:
		return &AnchorLocation{Other: &OtherLocation{Key: key, Value: value}}, nil
	}
}

// MarshalJSON implements custom JSON marshaling for AnchorLocation
func (l AnchorLocation) MarshalJSON() ([]byte, error) {
	s := l.String()
	if s == "" {
		return nil, fmt.Errorf("anchor location has no content")
	}
	return json.Marshal(s)
}

// UnmarshalJSON implements custom JSON unmarshaling for AnchorLocation
func (l *AnchorLocation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := parseLocation(s, s)
	if err != nil {
		return err
	}
	*l = *parsed
	return nil
}
