package reqcache

import (
	"context"
	"time"
)

// nullStore backs a disabled cache: writes succeed and every read misses.
type nullStore struct{}

func newNullStore() Store { return nullStore{} }

func (nullStore) Driver() Driver                                    { return DriverNull }
func (nullStore) Ready(context.Context) error                       { return nil }
func (nullStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (nullStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (nullStore) Delete(context.Context, string) error        { return nil }
func (nullStore) DeleteMany(context.Context, ...string) error { return nil }
func (nullStore) Flush(context.Context) error                 { return nil }
