/*
Package application is a library for building the server-side
executables of the identity verification system.

Encoding

This module implements the message encoding and decoding for
relying site and verifier communications. Currently this module only
supports JSON encoding.

Logger

This module implements a generic logging system that can be used by any
application/executable.

ServerBase

This module provides an API for serving verification requests over a
Unix socket or a TLS-protected TCP connection, with hot-reloading of
the configuration on SIGUSR2.
*/
package application
