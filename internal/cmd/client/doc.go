// Package client provides the `utubettlctl` command-line client.
//
// The CLI talks to the utubettl HTTP API to create spaces and drive the
// task lifecycle (put/take/release/delete/bury/kick/peek) from a terminal.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. The standalone binary defaults to
// http://127.0.0.1:8080, overridable via UTUBETTL_HTTP.
//
// Usage
//
//	utubettlctl space create --name jobs --pri 1
//	utubettlctl task put --space jobs --data '{"hello":"world"}' --utube emails
//	utubettlctl task take --space jobs
//	utubettlctl task release --space jobs --id 3 --delay-ms 500
//	utubettlctl task bury --space jobs --id 3
//	utubettlctl task kick --space jobs --n 5
//	utubettlctl task delete --space jobs --id 3
//	utubettlctl task peek --space jobs --id 3
package client
