// Package oracle proposes field transformations with a language model.
//
// Every field of a lineage group's representative is judged once: fields the
// model considers unmeaningful are dropped, the rest are named and mapped
// with a trimming expression.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/OFFIS-RIT/parversion/internal/util"
	"github.com/OFFIS-RIT/parversion/pkg/ai"
	"github.com/OFFIS-RIT/parversion/pkg/analysis"
	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/transform"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultMaxRetries    = 3
	DefaultSnippetTokens = 2048

	maxRetryDelay = 30 * time.Second

	// TrimCode is the expression assigned to every kept field.
	TrimCode = "value.trim()"
)

type eliminationResponse struct {
	IsUnmeaningful bool   `json:"is_unmeaningful" jsonschema_description:"True if the field is not meaningful content for a visitor of the page"`
	Justification  string `json:"justification" jsonschema_description:"Short justification for the answer"`
}

type keyResponse struct {
	Key         string `json:"key" jsonschema_description:"Lower snake_case JSON key naming the meaning of the value"`
	Description string `json:"description" jsonschema_description:"One sentence describing the values stored under the key"`
}

var errEmptyKey = errors.New("model returned an empty key")

func validateKey(out any) error {
	res, ok := out.(*keyResponse)
	if !ok {
		return fmt.Errorf("unexpected key response %T", out)
	}
	if NormalizeKey(res.Key) == "" {
		return errEmptyKey
	}
	return nil
}

// Oracle implements analysis.Oracle on top of an ai.Client.
type Oracle struct {
	client        ai.Client
	backoff       util.Backoff
	snippetTokens int
	opts          []ai.GenerateOption
}

// NewOracleParams configures an Oracle. Model, Temperature and Thinking are
// passed to every request; an empty Model keeps the client default. Failed requests
// are retried MaxRetries times in total, waiting RetryDelay before the first
// retry and doubling it after every further failure.
type NewOracleParams struct {
	Client        ai.Client
	Model         string
	Temperature   float64
	Thinking      string
	MaxRetries    int
	RetryDelay    time.Duration
	SnippetTokens int
}

var _ analysis.Oracle = (*Oracle)(nil)

func NewOracle(params NewOracleParams) (*Oracle, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("%w: no ai client configured", common.ErrOracle)
	}

	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	snippetTokens := params.SnippetTokens
	if snippetTokens <= 0 {
		snippetTokens = DefaultSnippetTokens
	}

	opts := []ai.GenerateOption{ai.WithTemperature(params.Temperature)}
	if params.Model != "" {
		opts = append(opts, ai.WithModel(params.Model))
	}
	if params.Thinking != "" {
		opts = append(opts, ai.WithThinking(params.Thinking))
	}

	backoff := util.Backoff{
		Attempts: maxRetries,
		Initial:  params.RetryDelay,
		Max:      maxRetryDelay,
	}

	return &Oracle{
		client:        params.Client,
		backoff:       backoff,
		snippetTokens: snippetTokens,
		opts:          opts,
	}, nil
}

// ProposeTransformations judges every field of the group representative in
// sorted field order. When the profile lists meaningful fields, other fields
// are dropped without asking the model.
func (o *Oracle) ProposeTransformations(ctx context.Context, meta *analysis.MetaContext, group analysis.ContextGroup) ([]common.FieldTransformation, error) {
	rep := group.Representative()
	if rep == nil {
		return nil, fmt.Errorf("%w: empty context group", common.ErrOracle)
	}

	node, parent := meta.DocumentNode(rep)
	snippet := o.snippet(node, parent)
	summary := meta.Summary()
	text := node != nil && document.IsText(node)

	var meaningful []string
	if meta.Profile != nil {
		meaningful = meta.Profile.MeaningfulFields
	}

	fields := rep.Data.Fields
	transformations := make([]common.FieldTransformation, 0, len(fields))
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		if len(meaningful) > 0 && !slices.Contains(meaningful, field) {
			logger.Debug("[Oracle] Field not meaningful for profile", "description", rep.Data.Description, "field", field)
			continue
		}
		value := fields[field]
		prompt := fmt.Sprintf(ai.FieldUserPrompt, field, value, summary, snippet)

		eliminate, err := o.eliminate(ctx, prompt, text && field == document.TextField)
		if err != nil {
			return nil, fmt.Errorf("failed to judge field %s of %s: %w", field, rep.Data.Description, err)
		}
		if eliminate {
			logger.Debug("[Oracle] Eliminated field", "description", rep.Data.Description, "field", field)
			continue
		}

		named, err := o.name(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to name field %s of %s: %w", field, rep.Data.Description, err)
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to mint transformation id: %w", common.ErrInternal, err)
		}
		transformations = append(transformations, common.FieldTransformation{
			ID:          id,
			Description: named.Description,
			Field:       field,
			Key:         named.Key,
			Runtime:     transform.RuntimeCEL,
			Code:        TrimCode,
		})
	}

	logger.Debug("[Oracle] Proposed transformations",
		"description", rep.Data.Description,
		"fields", len(fields),
		"kept", len(transformations),
	)
	return transformations, nil
}

func (o *Oracle) snippet(node, parent document.Node) string {
	if node == nil {
		return ""
	}
	s := document.Snippet(parent, node)
	if ai.CountTokens(s) > o.snippetTokens {
		s = ai.TruncateTokens(document.Snippet(nil, node), o.snippetTokens)
	}
	return s
}

func (o *Oracle) eliminate(ctx context.Context, prompt string, text bool) (bool, error) {
	system := ai.AttributeEliminationPrompt
	name := "attribute_elimination"
	if text {
		system = ai.TextEliminationPrompt
		name = "text_elimination"
	}

	res, err := util.RetryWithBackoff(ctx, o.backoff, func(ctx context.Context) (*eliminationResponse, error) {
		var res eliminationResponse
		err := o.client.GenerateCompletionWithFormat(
			ctx, name, "Decide whether a document field is meaningful.", prompt, &res,
			o.options(system)...,
		)
		if err != nil {
			return nil, err
		}
		return &res, nil
	})
	if err != nil {
		return false, wrap(err)
	}
	return res.IsUnmeaningful, nil
}

func (o *Oracle) name(ctx context.Context, prompt string) (*keyResponse, error) {
	res, err := util.RetryWithBackoff(ctx, o.backoff, func(ctx context.Context) (*keyResponse, error) {
		var res keyResponse
		err := o.client.GenerateCompletionWithFormat(
			ctx, "key_naming", "Name a document field as a JSON key.", prompt, &res,
			append(o.options(ai.KeyNamingPrompt), ai.WithValidator(validateKey))...,
		)
		if err != nil {
			return nil, err
		}
		if err := validateKey(&res); err != nil {
			return nil, err
		}
		res.Key = NormalizeKey(res.Key)
		return &res, nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return res, nil
}

func (o *Oracle) options(system string) []ai.GenerateOption {
	return append(slices.Clone(o.opts), ai.WithSystemPrompts(system))
}

func wrap(err error) error {
	if errors.Is(err, common.ErrOracle) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrOracle, err)
}
