// Package cmd implements the kshell command line.
//
// # Architecture
//
//   - root.go: App struct, cobra command setup and flags, one-shot execution
//   - shell.go: Shell, which wires the command tree, event bus, tabs,
//     executor, history store and terminal output together
//   - interactive.go: the go-prompt session, tree-driven completion and
//     multiline input
//
// # Execution
//
// Every line, whether passed with -c, given as arguments or typed at the
// prompt, goes through Shell.Run as a top-level invocation. Failures come
// back as values and are printed on stderr; in one-shot mode any failure
// makes the process exit with status 1.
//
// One-shot runs are headless: commands that need an interactive session
// (quit) are refused, and shell lines that need confirmation are denied.
//
// # Usage
//
//	func main() {
//	    cmd.Execute()
//	}
package cmd
