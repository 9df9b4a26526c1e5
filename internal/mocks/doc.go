// Package mocks provides centralized mock implementations for testing.
//
// Each mock implements one interface with a function field per method.
// When a function field is nil the mock returns its default values, so a
// test only sets the behaviour it cares about:
//
//	svc := &mocks.MockBasisService{
//	    ListBasesFn: func(ctx context.Context) ([]string, error) {
//	        return []string{"standard"}, nil
//	    },
//	}
package mocks
