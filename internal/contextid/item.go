package contextid

import "context"

// Item is a live handle on one field of scene state. Get always reads the
// current value, so text that references an id stays correct after edits.
type Item struct {
	ID   ID
	Name string

	get func() (string, error)
	set func(ctx context.Context, value string) error
}

// Get returns the current value.
func (it *Item) Get() (string, error) {
	v, err := it.get()
	if err != nil {
		return "", &Error{ID: it.ID.String(), Err: err}
	}
	return v, nil
}

// Set replaces the value.
func (it *Item) Set(ctx context.Context, value string) error {
	if it.set == nil {
		return &Error{ID: it.ID.String(), Err: ErrItemReadOnly}
	}
	if err := it.set(ctx, value); err != nil {
		return &Error{ID: it.ID.String(), Err: err}
	}
	return nil
}

// ReadOnly reports whether Set always fails.
func (it *Item) ReadOnly() bool {
	return it.set == nil
}
