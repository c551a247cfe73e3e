// README: Shared identifier type used across modules.
package types

// ID identifies users and persisted routes. User IDs are Firebase UIDs.
type ID string
