// Package schema defines the current kiosk configuration schema and the
// migrator that upgrades any stored or submitted document to it.
//
// The default table is the JSON form of Defaults(), one typed struct per
// group. Migration moves legacy keys, deep-merges the defaults under the
// user's values, runs the registered field rules from package normalize and
// synthesizes dependent sub-blocks. The registries for secret-shaped fields
// and per-feature requirements live here too, as data, so the store applies
// them without knowing the product schema.
package schema
