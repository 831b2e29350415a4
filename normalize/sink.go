package normalize

// SampleSink accepts one decoded sample belonging to a source channel.
// It stands in for the inheritance chain spec §9 replaces (abstract
// filter -> monitor -> normalizer): the Normalizer is a SampleSink that
// runs the §4.6 pipeline on each sample and forwards its output to an
// inner byte sink. The codec sits beside it as a tagged variant rather
// than another layer of the hierarchy.
type SampleSink interface {
	WriteSample(channel, sample int) error
}

type invalidConfig struct {
	field string
}

func (e invalidConfig) Error() string {
	return "normalize: invalid " + e.field
}

func errInvalid(field string) error {
	return invalidConfig{field: field}
}
