package eventcache

import errorsmod "cosmossdk.io/errors"

// ModuleName is the codespace of the event cache errors.
const ModuleName = "eventcache"

var (
	ErrOverlap      = errorsmod.Register(ModuleName, 2, "data commitment overlaps a cached one")
	ErrCorruptStore = errorsmod.Register(ModuleName, 3, "corrupt event store")
)
