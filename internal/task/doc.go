// Package task manages transfer tasks, the durable work orders behind
// every station flow.
//
// A task is created when an operator starts an inbound or outbound
// transfer. The flow supervisor moves it through its lifecycle as the
// physical transfer progresses, and the status survives restarts in
// SQLite. Outbound tasks pause at at_workstation until the operator
// confirms or disposes of the tray.
package task
