package shared

import "context"

// ChangeListener is told after an owner's records were written.
type ChangeListener interface {
	OwnerChanged(ctx context.Context, owner string)
}

// ChangeListeners fans a notification out to several listeners. A
// *ChangeListeners may be handed to services before its members are built;
// append to it before serving traffic.
type ChangeListeners []ChangeListener

// OwnerChanged implements ChangeListener.
func (ls ChangeListeners) OwnerChanged(ctx context.Context, owner string) {
	for _, l := range ls {
		if l != nil {
			l.OwnerChanged(ctx, owner)
		}
	}
}

// NotifyChanged calls l when it is set.
func NotifyChanged(ctx context.Context, l ChangeListener, owner string) {
	if l != nil {
		l.OwnerChanged(ctx, owner)
	}
}
