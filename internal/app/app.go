package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "cluster":
		return runCluster(args[1:])
	case "force-merge", "learn":
		return runForceMerge(args[1:])
	case "check-duplicates":
		return runCheckDuplicates(args[1:])
	case "rules":
		return runRules(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newsdesk CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newsdesk <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health            Check rule store and oracle configuration")
	fmt.Fprintln(os.Stderr, "  validate          Validate scraped article JSON files")
	fmt.Fprintln(os.Stderr, "  cluster           Group a directory of articles into stories")
	fmt.Fprintln(os.Stderr, "  force-merge       Merge selected clusters and learn a rule from them")
	fmt.Fprintln(os.Stderr, "  learn             Alias for force-merge")
	fmt.Fprintln(os.Stderr, "  check-duplicates  Flag clusters already published on WordPress")
	fmt.Fprintln(os.Stderr, "  rules             List learned merge rules")
	fmt.Fprintln(os.Stderr, "  serve             Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newsdesk <command> -h\" for command-specific flags.")
}
