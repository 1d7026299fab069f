package engine

// GenerationConfig holds sampling parameters for one completion call.
type GenerationConfig struct {
	MaxTokens     int
	Temperature   float64
	TopP          float64
	TopK          int
	RepeatPenalty float64
	Stop          []string
}

// DefaultGenerationConfig returns the engine-wide defaults. The stop set
// matches the chat delimiters of the Saiga2 models.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxTokens:     512,
		Temperature:   0.7,
		TopP:          0.95,
		TopK:          40,
		RepeatPenalty: 1.1,
		Stop:          []string{"</s>", "<|user|>", "<|assistant|>"},
	}
}

// Overrides carries per-call generation parameters. Nil fields fall through
// to the base configuration; a non-nil Stop replaces the base stop set
// entirely (including with an explicit empty set).
type Overrides struct {
	MaxTokens     *int
	Temperature   *float64
	TopP          *float64
	TopK          *int
	RepeatPenalty *float64
	Stop          []string
}

// Merge layers overrides onto a base configuration. Precedence is
// base < overrides < explicit stop, later layers winning. The base value is
// copied, never mutated.
func Merge(base GenerationConfig, o *Overrides) GenerationConfig {
	merged := base
	merged.Stop = append([]string(nil), base.Stop...)
	if o == nil {
		return merged
	}
	if o.MaxTokens != nil {
		merged.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		merged.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		merged.TopP = *o.TopP
	}
	if o.TopK != nil {
		merged.TopK = *o.TopK
	}
	if o.RepeatPenalty != nil {
		merged.RepeatPenalty = *o.RepeatPenalty
	}
	if o.Stop != nil {
		merged.Stop = append([]string(nil), o.Stop...)
	}
	return merged
}
