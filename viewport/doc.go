// Package viewport holds the mutable view state shared by every layer:
// where the viewport is (origin), how far apart screen pixels are
// (spacing), how large it is, how it is rotated and which coordinate
// reference system it displays.
//
// Every mutation that changes a value sets the geometry-changed flag.
// Setting a value equal to the current one does nothing. The compositor
// clears the flag once per completed render pass.
package viewport
