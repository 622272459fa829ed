package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Commands understood by ParseArguments
var commands = map[string]bool{
	"run":     true,
	"batch":   true,
	"results": true,
}

// ParseArguments converts command-line arguments (without the program name)
// into a map of flags and values. The command is stored under "command".
func ParseArguments(argv []string) map[string]string {
	args := make(map[string]string)

	// First, identify the command
	commandIndex := -1
	for i, arg := range argv {
		if commands[arg] {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	// Process all arguments, skipping the command
	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				// The next argument is the value
				args[flagName] = argv[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "eigenimages.db"
	}

	// Return the default database path next to the executable
	return filepath.Join(filepath.Dir(exePath), "eigenimages.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage(w io.Writer) {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s run --folder=PATH --output=FILE.csv [options]\n", prog)
	fmt.Fprintf(w, "  %s batch --folder=PATH [--results=PATH] [options]\n", prog)
	fmt.Fprintf(w, "  %s results [--database=PATH] [--folder=FILTER]\n", prog)
	fmt.Fprintf(w, "\nParameters:\n")
	fmt.Fprintf(w, "  --folder        : Image folder (run), parent of image folders (batch), or path filter (results)\n")
	fmt.Fprintf(w, "  --output        : Score file for run; images are written next to it\n")
	fmt.Fprintf(w, "  --results       : Batch output folder (default: <folder>/Results)\n")
	fmt.Fprintf(w, "  --static-resize : Resize to 100x100 (true) or to 10%% of the original size (false) (default: true)\n")
	fmt.Fprintf(w, "  --components    : Number of principal components to fit (default: 10)\n")
	fmt.Fprintf(w, "  --threshold     : Cumulative explained variance to stop at (0.0-1.0, default: 0.8)\n")
	fmt.Fprintf(w, "  --database      : Path to run ledger (default: %s)\n", GetDefaultDatabasePath())
	fmt.Fprintf(w, "  --no-database   : Do not record runs\n")
	fmt.Fprintf(w, "  --config        : YAML configuration file\n")
	fmt.Fprintf(w, "  --metrics-file  : Write Prometheus metrics to this file when done\n")
	fmt.Fprintf(w, "  --debug         : Enable debug mode (logs detailed information)\n")
	fmt.Fprintf(w, "  --logfile       : Write JSON logs to this file\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s run --folder=/path/to/images --output=/path/to/scores.csv\n", prog)
	fmt.Fprintf(w, "  %s batch --folder=/path/to/folders --static-resize=false\n", prog)
}

// ParseThreshold parses and validates a variance threshold in (0, 1]
func ParseThreshold(thresholdStr string) (float64, error) {
	parsedThreshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil || parsedThreshold <= 0 || parsedThreshold > 1 {
		return 0, fmt.Errorf("invalid threshold value '%s', want a number in (0, 1]", thresholdStr)
	}
	return parsedThreshold, nil
}

// ParseComponents parses and validates a positive component budget
func ParseComponents(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid component count '%s', want a positive integer", s)
	}
	return n, nil
}

// ParseBool parses a boolean flag value
func ParseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value '%s'", s)
	}
	return b, nil
}
