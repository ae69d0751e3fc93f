// Package configstore owns the kiosk document on disk.
//
// Every read and write passes the document through the schema migrator.
// Writes are serialized by an in-process mutex and a cross-process file
// lock, merge partial payloads over the stored document, route secret
// fields to the secret store, check the credentials enabled features need,
// and persist atomically. Successful writes publish a config_changed event
// carrying the new checksum and the groups that changed.
//
// The persisted document never holds plaintext secrets; it carries the
// has_<field> and <field>_last4 projection instead.
package configstore
