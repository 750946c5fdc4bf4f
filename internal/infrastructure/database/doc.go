// Package database provides the SQLite connection and schema migration
// support for the Greenrack core.
//
// SQLite holds the durable state of the system: tasks (transfer orders
// moving through the station flows) and the tray inventory (which tray
// sits in which floor/slot, with its plant metadata). The rest of the
// core treats this package as plumbing; domain queries live in the
// task and tray repositories.
//
// Migrations are embedded SQL files applied at startup, each in its own
// transaction. See the migrations package for the schema history.
package database
