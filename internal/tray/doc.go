// Package tray manages the tray inventory: which tray sits in which
// warehouse slot, with the plant metadata from the planting plan.
//
// The flow supervisor inserts a tray row when an inbound transfer
// completes and flips it to outbound when the retrieval pickup happens.
// The occupancy Grid is a derived snapshot used for slot allocation and
// blocking-tray detection; it is rebuilt from stored trays, never
// persisted.
package tray
