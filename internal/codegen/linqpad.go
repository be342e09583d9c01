package codegen

import (
	"strings"

	"github.com/MakeNowJust/heredoc"
)

var linqpadHeader = heredoc.Doc(`
	<Query Kind="Statements">
	  <Namespace>System.Net</Namespace>
	  <Namespace>System.Net.Http</Namespace>
	</Query>
`)

// WrapLINQPad prefixes code with the query header LINQPad needs to run it as
// a statements query. The header uses the same CRLF terminator as the code.
func WrapLINQPad(code string) string {
	header := strings.ReplaceAll(linqpadHeader, "\n", LineTerminator)
	return header + LineTerminator + code
}
