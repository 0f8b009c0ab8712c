package main

import (
	"pyproj/cmd" // Import the cmd package which contains the CLI command and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles argument classification and execution.
//
// pyproj manages Python projects sourced from Git repositories:
//   - Clones a project into the base directory and creates its virtual environment
//   - Installs dependencies through the project's build.sh or requirements.txt
//   - Registers one run target per project in a shared bin directory, either a
//     symlink to the project's run.sh or a generated wrapper script
//   - Updates a project by stashing local work, pulling, and restoring the stash
//   - Removes a project and its run target after confirmation
//
// Error handling strategy:
//   - Warnings are logged and execution continues
//   - Fatal errors stop the invocation with a message on stderr and a non-zero exit
func main() {
	cmd.Execute()
}
