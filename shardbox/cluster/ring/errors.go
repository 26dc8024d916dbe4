package ring

import "errors"

var (
	ErrEmptyRing         = errors.New("ring has no nodes")
	ErrDuplicateNode     = errors.New("node already on the ring")
	ErrUnknownNode       = errors.New("node not on the ring")
	ErrLastNodeRemoval   = errors.New("cannot remove the last node")
	ErrPositionCollision = errors.New("ring position already taken")
)
