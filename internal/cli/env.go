package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// envPrefix prefixes the environment variables that default the persistent
// flags, e.g. SLURMCODEC_LOG_LEVEL for --log-level.
const envPrefix = "SLURMCODEC_"

// lookupEnvFunc matches os.LookupEnv.
type lookupEnvFunc func(key string) (string, bool)

// envName returns the variable that defaults the named flag.
func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv fills every flag of persistent that was not given on the command
// line from its environment variable. Slice flags take comma separated lists.
func applyEnv(flags, persistent *pflag.FlagSet, lookup lookupEnvFunc) error {
	var err error
	persistent.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		// The executing command holds the parsed copy of inherited flags.
		parsed := flags.Lookup(f.Name)
		if parsed == nil || parsed.Changed {
			return
		}
		val, ok := lookup(envName(f.Name))
		if !ok {
			return
		}
		if serr := flags.Set(f.Name, val); serr != nil {
			err = &ExitError{Code: exitUsage, Message: fmt.Sprintf("invalid value %q in %s: %s", val, envName(f.Name), serr)}
		}
	})
	return err
}
