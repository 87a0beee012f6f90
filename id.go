package tab

import "github.com/xraph/tab/id"

// ID is the TypeID identifier used for notes, payments, archive records and
// events.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
