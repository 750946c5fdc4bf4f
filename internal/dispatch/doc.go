// Package dispatch paces outbound device commands.
//
// Lift controllers, AGVs, tray grippers and the lighting bus bridge
// all sit behind slow serial links that drop or garble commands when
// flooded. The dispatcher gives each device class a FIFO with a
// minimum inter-command gap, so the flow machines can fire effects
// immediately and leave the pacing here.
package dispatch
