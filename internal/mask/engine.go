package mask

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nexusdata/nexusdata/internal/domain"
)

// Extractor finds entity occurrences for labels the fixed schema does not
// cover. Satisfied by the Gemini platform client.
type Extractor interface {
	Extract(ctx context.Context, text string, labels []string) (map[string][]string, error)
}

// similarityFloor is the minimum cosine similarity at which a free-form
// label is folded into a catalog type. Below it the label is kept as-is
// and extraction goes through the model.
const similarityFloor = 0.5

// Request describes one masking job.
type Request struct {
	Text         string
	Strategy     domain.MaskStrategy
	Schema       []string
	ForceConvert []domain.ForceConvertPair
}

// Result is the outcome of a masking job. Mapping relates each replaced
// original to its substitute. Resolutions records which requested labels
// were folded into catalog types.
type Result struct {
	MaskedText  string              `json:"masked_text"`
	Mapping     map[string]string   `json:"mapping"`
	Entities    map[string][]string `json:"entities"`
	Resolutions map[string]string   `json:"resolutions,omitempty"`
}

// Engine performs entity extraction and substitution over free text.
type Engine struct {
	classifier TypeClassifier
	extractor  Extractor
	faker      *FakeGenerator
	aesKey     []byte
	logger     *slog.Logger
}

// NewEngine assembles a masking engine. classifier and extractor may be
// nil, in which case label resolution and custom-type extraction degrade
// to the fixed regex schema.
func NewEngine(classifier TypeClassifier, extractor Extractor, aesPassphrase string, logger *slog.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		extractor:  extractor,
		faker:      NewFakeGenerator(),
		aesKey:     DeriveAESKey(aesPassphrase),
		logger:     logger,
	}
}

type span struct {
	start       int
	end         int
	original    string
	replacement string
	typeName    string
	locked      bool
}

// Mask runs the full pipeline: force conversions, label resolution,
// extraction, strategy application and a single-pass rebuild of the text.
func (e *Engine) Mask(ctx context.Context, req Request) (*Result, error) {
	if !req.Strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedStrategy, req.Strategy)
	}

	spans := forceConvertSpans(req.Text, req.ForceConvert)
	locked := make(map[string]bool, len(req.ForceConvert))
	for _, pair := range req.ForceConvert {
		locked[pair.Original] = true
	}

	fixed, custom, resolutions, err := e.resolveSchema(ctx, req.Schema)
	if err != nil {
		return nil, err
	}

	entities := make(map[string][]string)
	for _, label := range fixed {
		if found := extractFixed(label, req.Text); len(found) > 0 {
			entities[label] = found
		}
	}
	if len(custom) > 0 && e.extractor != nil {
		found, err := e.extractor.Extract(ctx, req.Text, custom)
		if err != nil {
			return nil, fmt.Errorf("failed to extract entities: %w", err)
		}
		for label, values := range found {
			if len(values) > 0 {
				entities[label] = dedupe(values)
			}
		}
	} else if len(custom) > 0 {
		e.logger.Warn("skipping labels with no extractor configured", "labels", custom)
	}

	mapping := make(map[string]string)
	for _, typeName := range sortedKeys(entities) {
		originals := make([]string, 0, len(entities[typeName]))
		for _, original := range entities[typeName] {
			// Force-converted values already have a fixed target.
			if !locked[original] {
				originals = append(originals, original)
			}
		}
		if len(originals) == 0 {
			continue
		}
		replacements, err := e.applyStrategy(req.Strategy, typeName, originals)
		if err != nil {
			return nil, err
		}
		for i, original := range originals {
			spans = append(spans, entitySpans(req.Text, original, replacements[i], typeName)...)
		}
	}

	applied := planSpans(spans)
	masked := applySpans(req.Text, applied)
	for _, s := range applied {
		mapping[s.original] = s.replacement
	}

	return &Result{
		MaskedText:  masked,
		Mapping:     mapping,
		Entities:    entities,
		Resolutions: resolutions,
	}, nil
}

// resolveSchema splits requested labels into fixed catalog types and
// custom types, folding near-synonyms into the catalog. An empty schema
// selects nothing: the text passes through untouched except for force
// conversions.
func (e *Engine) resolveSchema(ctx context.Context, schema []string) (fixed, custom []string, resolutions map[string]string, err error) {
	if len(schema) == 0 {
		return nil, nil, nil, nil
	}

	resolutions = make(map[string]string)
	seenFixed := make(map[string]bool)
	seenCustom := make(map[string]bool)

	for _, label := range schema {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		canonical := label
		if alias, ok := aliasTypes[label]; ok {
			canonical = alias
		}
		if !IsFixedType(canonical) && e.classifier != nil {
			resolved, score, cerr := e.classifier.Classify(ctx, canonical)
			if cerr != nil {
				return nil, nil, nil, fmt.Errorf("failed to resolve label %q: %w", label, cerr)
			}
			if score >= similarityFloor {
				canonical = resolved
			}
		}

		if canonical != label {
			resolutions[label] = canonical
		}
		if IsFixedType(canonical) {
			if !seenFixed[canonical] {
				seenFixed[canonical] = true
				fixed = append(fixed, canonical)
			}
		} else if !seenCustom[canonical] {
			seenCustom[canonical] = true
			custom = append(custom, canonical)
		}
	}

	if len(resolutions) == 0 {
		resolutions = nil
	}
	return fixed, custom, resolutions, nil
}

func forceConvertSpans(text string, pairs []domain.ForceConvertPair) []span {
	var spans []span
	for _, pair := range pairs {
		if pair.Original == "" {
			continue
		}
		spans = append(spans, entitySpansLocked(text, pair.Original, pair.Target)...)
	}
	return spans
}

func entitySpans(text, original, replacement, typeName string) []span {
	var spans []span
	for _, start := range allIndexes(text, original) {
		spans = append(spans, span{
			start:       start,
			end:         start + len(original),
			original:    original,
			replacement: replacement,
			typeName:    typeName,
		})
	}
	return spans
}

func entitySpansLocked(text, original, target string) []span {
	var spans []span
	for _, start := range allIndexes(text, original) {
		spans = append(spans, span{
			start:       start,
			end:         start + len(original),
			original:    original,
			replacement: target,
			locked:      true,
		})
	}
	return spans
}

func allIndexes(text, sub string) []int {
	var out []int
	for offset := 0; ; {
		i := strings.Index(text[offset:], sub)
		if i < 0 {
			return out
		}
		out = append(out, offset+i)
		offset += i + len(sub)
	}
}

// planSpans picks a non-overlapping subset of candidate spans. Locked
// spans take precedence over extracted ones; among the rest longer
// matches win, then earlier starts.
func planSpans(candidates []span) []span {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.locked != b.locked {
			return a.locked
		}
		if la, lb := a.end-a.start, b.end-b.start; la != lb {
			return la > lb
		}
		return a.start < b.start
	})

	var accepted []span
	for _, c := range candidates {
		overlaps := false
		for _, a := range accepted {
			if c.start < a.end && a.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

// applySpans rebuilds the text in one pass over the accepted spans.
func applySpans(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	cursor := 0
	for _, s := range spans {
		b.WriteString(text[cursor:s.start])
		b.WriteString(s.replacement)
		cursor = s.end
	}
	b.WriteString(text[cursor:])
	return b.String()
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
