// Package serial provides the serial-port transport for instctl, backed by
// github.com/tarm/serial.
//
// A Conn is one open port. Commands are written with a configurable write
// terminator (CR by default) and responses are read either up to a read
// terminator or until the port goes quiet, which suits devices like the
// Thorlabs SC10 that echo commands and emit a bare "> " prompt.
//
// RS-485 multidrop devices (for example the Kurt Lesker 979 transducer) are
// addressed through the RS485 wrapper, which frames each exchange as
// "@<addr><cmd>;FF" and strips the address envelope from replies.
package serial
