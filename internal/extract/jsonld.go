package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

const (
	ldJSONType = "application/ld+json"
	recipeType = "Recipe"
	// maxGraphDepth bounds @graph/array nesting so hostile pages cannot recurse forever.
	maxGraphDepth = 8
)

var errInvalidBlock = errors.New("invalid JSON-LD block")

// structuredData scans every JSON-LD block in document order and maps the
// first schema.org Recipe it finds. Blocks that fail to parse are logged and
// skipped.
func structuredData(doc *goquery.Document, pageURL *url.URL, logger *zap.Logger) (recipe.Parsed, bool) {
	var found *ldRecipe
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if !isLDJSON(s) {
			return true
		}
		r, err := findRecipe([]byte(s.Text()))
		if err != nil {
			logger.Debug("skipping JSON-LD block", zap.Int("index", i), zap.Error(err))
			return true
		}
		if r == nil {
			return true
		}
		found = r
		return false
	})
	if found == nil {
		return recipe.Parsed{}, false
	}
	return found.toParsed(pageURL), true
}

func isLDJSON(s *goquery.Selection) bool {
	typ, ok := s.Attr("type")
	return ok && strings.EqualFold(strings.TrimSpace(typ), ldJSONType)
}

// findRecipe returns the first Recipe object in one JSON-LD block, or nil when
// the block holds none.
func findRecipe(block []byte) (*ldRecipe, error) {
	block = bytes.TrimSpace(block)
	if !json.Valid(block) {
		return nil, errInvalidBlock
	}
	for _, node := range flattenNodes(block, 0) {
		var head ldHeader
		if err := json.Unmarshal(node, &head); err != nil {
			continue
		}
		if !head.Type.has(recipeType) {
			continue
		}
		var r ldRecipe
		if err := json.Unmarshal(node, &r); err != nil {
			return nil, fmt.Errorf("decode recipe: %w", err)
		}
		return &r, nil
	}
	return nil, nil
}

// flattenNodes expands arrays and @graph containers into candidate objects,
// preserving document order.
func flattenNodes(raw json.RawMessage, depth int) []json.RawMessage {
	if depth > maxGraphDepth {
		return nil
	}
	switch leadingByte(raw) {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		var out []json.RawMessage
		for _, item := range items {
			out = append(out, flattenNodes(item, depth+1)...)
		}
		return out
	case '{':
		out := []json.RawMessage{raw}
		var container struct {
			Graph json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(raw, &container); err == nil && len(container.Graph) > 0 {
			out = append(out, flattenNodes(container.Graph, depth+1)...)
		}
		return out
	default:
		return nil
	}
}

type ldHeader struct {
	Type ldTypes `json:"@type"`
}

type ldRecipe struct {
	Name         ldScalar       `json:"name"`
	Ingredients  ldStrings      `json:"recipeIngredient"`
	Instructions ldInstructions `json:"recipeInstructions"`
	TotalTime    ldScalar       `json:"totalTime"`
	PrepTime     ldScalar       `json:"prepTime"`
	Yield        ldScalar       `json:"recipeYield"`
	Image        ldImage        `json:"image"`
}

func (r *ldRecipe) toParsed(pageURL *url.URL) recipe.Parsed {
	out := recipe.NewParsed(pageURL.Host)
	if name := strings.TrimSpace(r.Name.value); name != "" {
		out.Title = name
	}
	if len(r.Ingredients) > 0 {
		out.Ingredients = append([]string(nil), r.Ingredients...)
	}
	out.Instructions = r.Instructions.text
	switch {
	case r.TotalTime.value != "":
		out.PrepTime = r.TotalTime.ptr()
	case r.PrepTime.value != "":
		out.PrepTime = r.PrepTime.ptr()
	}
	out.Servings = r.Yield.ptr()
	if r.Image.url != "" {
		img := r.Image.url
		out.ImageURL = &img
	}
	return out
}

// ldTypes decodes "@type", which may be a single string or a list of strings.
type ldTypes []string

func (t *ldTypes) UnmarshalJSON(data []byte) error {
	switch leadingByte(data) {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode @type: %w", err)
		}
		*t = ldTypes{s}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode @type list: %w", err)
		}
		out := make(ldTypes, 0, len(items))
		for _, item := range items {
			var s string
			if json.Unmarshal(item, &s) == nil {
				out = append(out, s)
			}
		}
		*t = out
	}
	return nil
}

func (t ldTypes) has(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

// ldScalar decodes a string, a number, or a list whose first non-empty scalar
// entry wins. Objects and booleans leave it unset.
type ldScalar struct {
	value string
}

func (s *ldScalar) UnmarshalJSON(data []byte) error {
	switch b := leadingByte(data); {
	case b == '"':
		if err := json.Unmarshal(data, &s.value); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
	case b == '-' || (b >= '0' && b <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		s.value = n.String()
	case b == '[':
		var items []ldScalar
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		for _, item := range items {
			if strings.TrimSpace(item.value) != "" {
				s.value = item.value
				break
			}
		}
	}
	return nil
}

func (s ldScalar) ptr() *string {
	if s.value == "" {
		return nil
	}
	v := s.value
	return &v
}

// ldStrings decodes a list of scalars; a lone string becomes a one-element list.
type ldStrings []string

func (l *ldStrings) UnmarshalJSON(data []byte) error {
	switch leadingByte(data) {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*l = ldStrings{s}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		out := make(ldStrings, 0, len(items))
		for _, item := range items {
			switch b := leadingByte(item); {
			case b == '"', b == '-', b >= '0' && b <= '9':
				var v ldScalar
				if err := json.Unmarshal(item, &v); err == nil {
					out = append(out, v.value)
				}
			}
		}
		*l = out
	}
	return nil
}

// ldInstructions decodes recipeInstructions: a plain string, a single step
// object, or a list of strings, HowToStep objects, and HowToSection objects.
type ldInstructions struct {
	text string
}

func (in *ldInstructions) UnmarshalJSON(data []byte) error {
	switch leadingByte(data) {
	case '"':
		if err := json.Unmarshal(data, &in.text); err != nil {
			return fmt.Errorf("decode instructions: %w", err)
		}
	case '[', '{':
		steps, err := decodeSteps(data, 0)
		if err != nil {
			return err
		}
		in.text = strings.Join(steps, "\n")
	}
	return nil
}

type ldStep struct {
	Type  ldTypes         `json:"@type"`
	Text  ldScalar        `json:"text"`
	Name  ldScalar        `json:"name"`
	Items json.RawMessage `json:"itemListElement"`
}

func decodeSteps(data []byte, depth int) ([]string, error) {
	if depth > maxGraphDepth {
		return nil, nil
	}
	switch leadingByte(data) {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode step: %w", err)
		}
		return []string{s}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
		var out []string
		for _, item := range items {
			steps, err := decodeSteps(item, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, steps...)
		}
		return out, nil
	case '{':
		var step ldStep
		if err := json.Unmarshal(data, &step); err != nil {
			return nil, fmt.Errorf("decode step object: %w", err)
		}
		if len(step.Items) > 0 && (step.Type.has("HowToSection") || step.Text.value == "") {
			return decodeSteps(step.Items, depth+1)
		}
		if step.Text.value == "" && step.Name.value != "" {
			return []string{step.Name.value}, nil
		}
		// a step without text still occupies its line
		return []string{step.Text.value}, nil
	default:
		return nil, nil
	}
}

// ldImage decodes "image": a URL string, an ImageObject with "url", or a list
// whose first element is either of those.
type ldImage struct {
	url string
}

func (im *ldImage) UnmarshalJSON(data []byte) error {
	switch leadingByte(data) {
	case '"':
		if err := json.Unmarshal(data, &im.url); err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
	case '{':
		var obj struct {
			URL ldScalar `json:"url"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decode image object: %w", err)
		}
		im.url = obj.URL.value
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode image list: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		switch leadingByte(items[0]) {
		case '"', '{':
			return im.UnmarshalJSON(items[0])
		}
	}
	return nil
}

func leadingByte(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	return data[0]
}
