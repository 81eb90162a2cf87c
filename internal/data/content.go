package data

import (
	"encoding/json"
	"fmt"
)

// Content kind tags as they appear on the wire and in the type column.
const (
	ContentText = "text"
	ContentCode = "code"
)

// TextContent is the payload of a rich-text block.
type TextContent struct {
	Text string `json:"text"`
}

// CodeContent is the payload of a code block.
type CodeContent struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Content is a closed union of block payloads: exactly one of Text or Code
// is set. On the wire it is a tagged envelope:
//
//	{"type":"text","data":{"text":"..."}}
//	{"type":"code","data":{"language":"go","code":"..."}}
//
// Unknown tags and malformed payloads are validation errors, never a crash.
type Content struct {
	Text *TextContent
	Code *CodeContent
}

// contentEnvelope is the wire representation of the union.
type contentEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Kind returns the tag of the active arm, or "" when unset.
func (c Content) Kind() string {
	switch {
	case c.Text != nil:
		return ContentText
	case c.Code != nil:
		return ContentCode
	default:
		return ""
	}
}

// Validate checks that exactly one arm of the union is set.
func (c Content) Validate() error {
	if c.Text != nil && c.Code != nil {
		return fmt.Errorf("content must be either text or code, not both")
	}
	if c.Text == nil && c.Code == nil {
		return fmt.Errorf("content is required")
	}
	return nil
}

// MarshalJSON encodes the active arm as a tagged envelope.
func (c Content) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var payload any
	if c.Text != nil {
		payload = c.Text
	} else {
		payload = c.Code
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(contentEnvelope{Type: c.Kind(), Data: data})
}

// UnmarshalJSON decodes a tagged envelope into the matching arm.
func (c *Content) UnmarshalJSON(raw []byte) error {
	var env contentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("invalid content envelope: %w", err)
	}

	decoded, err := DecodeContent(env.Type, env.Data)
	if err != nil {
		return err
	}

	*c = decoded
	return nil
}

// DecodeContent rebuilds a Content union from its stored representation:
// the type tag and the payload JSON of the active arm. This is also how
// rows come back out of the content_blocks table.
func DecodeContent(kind string, payload []byte) (Content, error) {
	switch kind {
	case ContentText:
		var text TextContent
		if err := json.Unmarshal(payload, &text); err != nil {
			return Content{}, fmt.Errorf("invalid text content: %w", err)
		}
		return Content{Text: &text}, nil

	case ContentCode:
		var code CodeContent
		if err := json.Unmarshal(payload, &code); err != nil {
			return Content{}, fmt.Errorf("invalid code content: %w", err)
		}
		return Content{Code: &code}, nil

	default:
		return Content{}, fmt.Errorf("unknown content type %q", kind)
	}
}

// EncodeContent returns the (type tag, payload JSON) pair persisted for a
// content block, the inverse of DecodeContent.
func EncodeContent(c Content) (string, []byte, error) {
	if err := c.Validate(); err != nil {
		return "", nil, err
	}

	var payload any
	if c.Text != nil {
		payload = c.Text
	} else {
		payload = c.Code
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}

	return c.Kind(), data, nil
}
