package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type Layer string

const (
	LayerWhat Layer = "What"
	LayerHow  Layer = "How"
	LayerWow  Layer = "Wow"
)

var Layers = []Layer{LayerWhat, LayerHow, LayerWow}

// ParseLayer matches case-insensitively and returns the canonical spelling.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range Layers {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, true
		}
	}
	return "", false
}

type GrowthLever string

const (
	LeverActivation      GrowthLever = "Activation"
	LeverRetention       GrowthLever = "Retention"
	LeverDifferentiation GrowthLever = "Differentiation"
	LeverB2B             GrowthLever = "B2B"
)

var GrowthLevers = []GrowthLever{LeverActivation, LeverRetention, LeverDifferentiation, LeverB2B}

func ParseGrowthLever(s string) (GrowthLever, bool) {
	for _, g := range GrowthLevers {
		if strings.EqualFold(strings.TrimSpace(s), string(g)) {
			return g, true
		}
	}
	return "", false
}

// RejectionReason values. Field-specific reasons carry the field name after a colon.
const (
	ReasonMissingField      = "missing_field"
	ReasonInvalidEnum       = "invalid_enum"
	ReasonEmptyText         = "empty_text"
	ReasonMalformedResponse = "malformed_response"
	ReasonAPIFailure        = "api_failure"
)

func FieldReason(reason, field string) string {
	return reason + ":" + field
}

// ClassifiedMoment is one classification attempt for a raw post. Records are
// never mutated; a re-classification is a new record with a new ID.
type ClassifiedMoment struct {
	ID              string      `json:"id"`
	SourceID        string      `json:"source_id,omitempty"`
	Layer           Layer       `json:"layer"`
	GrowthLever     GrowthLever `json:"growth_lever"`
	Realization     string      `json:"realization"`
	Provocation     string      `json:"provocation"`
	Quote           string      `json:"quote,omitempty"`
	UseCase         string      `json:"use_case,omitempty"`
	Accepted        bool        `json:"accepted"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	PromptVersion   string      `json:"prompt_version,omitempty"`
	Model           string      `json:"model,omitempty"`
	ClassifiedAt    time.Time   `json:"classified_at"`
}

func (m ClassifiedMoment) Key() string {
	return m.ID
}

// PublishedMoment is an accepted classification joined with its post, or a
// hand-written curated entry with no source post.
type PublishedMoment struct {
	ClassifiedMoment

	Curated  bool     `json:"curated,omitempty"`
	Platform Platform `json:"platform,omitempty"`
	Title    string   `json:"title,omitempty"`
	URL      string   `json:"url,omitempty"`
	Author   string   `json:"author,omitempty"`
	AITool   string   `json:"ai_tool,omitempty"`
}

func PublishedKeyForPost(sourceID string) string {
	return "post:" + sourceID
}

// Key is stable across runs: one published moment per source post, and
// curated entries keyed by their id or, when absent, by their content.
func (m PublishedMoment) Key() string {
	if !m.Curated && m.SourceID != "" {
		return PublishedKeyForPost(m.SourceID)
	}
	if m.ID != "" {
		return "curated:" + m.ID
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		string(m.Layer), string(m.GrowthLever), m.Realization, m.Provocation, m.URL,
	}, "\x00")))
	return "curated:" + hex.EncodeToString(sum[:8])
}

// Validate checks that all four taxonomy fields are populated and the enums are known.
func (m PublishedMoment) Validate() error {
	if _, ok := ParseLayer(string(m.Layer)); !ok {
		return fmt.Errorf("%w: %s", ErrSchema, FieldReason(ReasonInvalidEnum, "layer"))
	}
	if _, ok := ParseGrowthLever(string(m.GrowthLever)); !ok {
		return fmt.Errorf("%w: %s", ErrSchema, FieldReason(ReasonInvalidEnum, "growth_lever"))
	}
	if strings.TrimSpace(m.Realization) == "" {
		return fmt.Errorf("%w: %s", ErrSchema, FieldReason(ReasonEmptyText, "realization"))
	}
	if strings.TrimSpace(m.Provocation) == "" {
		return fmt.Errorf("%w: %s", ErrSchema, FieldReason(ReasonEmptyText, "provocation"))
	}
	if !m.Curated && m.SourceID == "" {
		return fmt.Errorf("%w: published moment has neither source_id nor curated flag", ErrSchema)
	}
	return nil
}
