// Package frontend provides encoder jobs producing the frontend messages a
// client exchanges with a Postgres backend. Each function returns an encoder
// which could be submitted to the dispatcher paired with the result stream
// consuming the backend's reply.
package frontend

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/jeroenrinzema/psql-dispatch/pkg/buffer"
	"github.com/jeroenrinzema/psql-dispatch/pkg/types"
)

// Batch sequences the given encoders into a single encoder producing one
// network-visible batch, typically used to pipeline an extended protocol
// message sequence terminated by a sync.
func Batch(jobs ...func(writer *buffer.Writer) error) func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		for _, job := range jobs {
			err := job(writer)
			if err != nil {
				return err
			}
		}

		return nil
	}
}

// Startup encodes the startup message presenting the protocol version and
// the given connection parameters, typically at least the user and database.
func Startup(parameters map[string]string) func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.StartUntyped()
		writer.AddInt32(int32(types.Version30))

		// NOTE: the parameters consist out of keys and values. Each key and
		// value is terminated using a nul byte and the end of all parameters
		// is identified using a empty key value.
		for key, value := range parameters {
			writer.AddString(key)
			writer.AddNullTerminate()
			writer.AddString(value)
			writer.AddNullTerminate()
		}

		writer.AddNullTerminate()
		return writer.End()
	}
}

// Password encodes a clear text password message.
func Password(password string) func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientPassword)
		writer.AddString(password)
		writer.AddNullTerminate()
		return writer.End()
	}
}

// MD5Password encodes a password message answering an MD5 authentication
// request using the salt carried inside the request:
// concat('md5', md5(concat(md5(concat(password, username)), salt))).
func MD5Password(username, password string, salt [4]byte) func(writer *buffer.Writer) error {
	inner := md5.Sum([]byte(password + username))
	outer := md5.Sum(append([]byte(hex.EncodeToString(inner[:])), salt[:]...))
	return Password("md5" + hex.EncodeToString(outer[:]))
}

// SimpleQuery encodes a simple query message executing the given statements
// in a single round trip.
func SimpleQuery(query string) func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientSimpleQuery)
		writer.AddString(query)
		writer.AddNullTerminate()
		return writer.End()
	}
}

// Parse encodes a parse message preparing the given query under the given
// statement name. Parameter types are left for the backend to infer.
func Parse(name, query string) func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientParse)
		writer.AddString(name)
		writer.AddNullTerminate()
		writer.AddString(query)
		writer.AddNullTerminate()
		writer.AddInt16(0)
		return writer.End()
	}
}

// Bind encodes a bind message binding the given text format arguments to a
// prepared statement, producing an unnamed portal. Nil arguments are bound
// as NULL values.
func Bind(statement string, arguments [][]byte) func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientBind)
		writer.AddNullTerminate() // unnamed portal
		writer.AddString(statement)
		writer.AddNullTerminate()
		writer.AddInt16(0) // all arguments are presented in text format
		writer.AddInt16(int16(len(arguments)))

		for _, argument := range arguments {
			if argument == nil {
				writer.AddInt32(-1)
				continue
			}

			writer.AddInt32(int32(len(argument)))
			writer.AddBytes(argument)
		}

		writer.AddInt16(0) // all results are returned in text format
		return writer.End()
	}
}

// Describe encodes a describe message requesting the row description of the
// unnamed portal.
func Describe() func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientDescribe)
		writer.AddByte('P')
		writer.AddNullTerminate()
		return writer.End()
	}
}

// Execute encodes an execute message running the unnamed portal to
// completion.
func Execute() func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientExecute)
		writer.AddNullTerminate() // unnamed portal
		writer.AddInt32(0)        // no row limit
		return writer.End()
	}
}

// Sync encodes a sync message closing an extended protocol message sequence
// and requesting a ready for query once the sequence has been processed.
func Sync() func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientSync)
		return writer.End()
	}
}

// Terminate encodes a terminate message announcing the orderly end of the
// session. No reply is sent by the backend.
func Terminate() func(writer *buffer.Writer) error {
	return func(writer *buffer.Writer) error {
		writer.Start(types.ClientTerminate)
		return writer.End()
	}
}
