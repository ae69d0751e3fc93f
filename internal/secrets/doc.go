// Package secrets keeps credential values out of the kiosk document.
//
// A Store holds plaintext values keyed by well-known names. The document
// only ever carries the derived projection: a has_<field> flag and the
// <field>_last4 suffix. Extract pulls secret-shaped fields out of an
// incoming payload as Ops, and Project refreshes the projection keys from
// the store after a write.
//
// SQLiteStore is the durable backend; MemoryStore backs tests.
package secrets
