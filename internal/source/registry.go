package source

import (
	"fmt"

	"github.com/nao1215/reportscan/internal/httpclient"
)

// Names lists the available sources.
func Names() []string {
	return []string{NameHankyung, NameConsensus}
}

// New creates the source called name.
func New(name string, client *httpclient.Client, q Query, opts ...Option) (Source, error) {
	switch name {
	case NameHankyung:
		s, err := NewHankyung(client, q, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case NameConsensus:
		s, err := NewConsensus(client, q, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}
