package mainboilerplate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

// ConfigDirs returns directories searched, in order, for an INI file of the
// program's configuration:
//   - The current working directory.
//   - ~/.config/feedcache (under the user's $HOME or %UserProfile% directory).
//   - $FEEDCACHE_CONFIG_ROOT, if set.
func ConfigDirs() []string {
	var dirs = []string{
		".",
		filepath.Join(os.Getenv("HOME"), ".config", "feedcache"),
		filepath.Join(os.Getenv("UserProfile"), ".config", "feedcache"),
	}
	if root := os.Getenv("FEEDCACHE_CONFIG_ROOT"); root != "" {
		dirs = append(dirs, root)
	}
	return dirs
}

// MustParseConfig requires that the Parser parse from the combination of an
// optional INI file named |configName| found in one of ConfigDirs,
// configured environment bindings, and explicit flags.
func MustParseConfig(parser *flags.Parser, configName string) {
	if err := ParseIniFile(parser, configName, ConfigDirs()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	MustParseArgs(parser)
}

// ParseIniFile parses the first INI file named |configName| found within
// |dirs| into the Parser. It's not an error if no such file exists.
// Options of the file which the Parser doesn't know are ignored.
func ParseIniFile(parser *flags.Parser, configName string, dirs []string) error {
	var origOptions = parser.Options
	parser.Options |= flags.IgnoreUnknown
	defer func() { parser.Options = origOptions }()

	var iniParser = flags.NewIniParser(parser)

	for _, dir := range dirs {
		var path = filepath.Join(dir, configName)

		if err := iniParser.ParseFile(path); err == nil {
			return nil
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// MustParseArgs requires that Parser be able to ParseArgs without error.
func MustParseArgs(parser *flags.Parser) {
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		var flagErr, ok = err.(*flags.Error)
		if !ok {
			Must(err, "fatal error")
		}

		switch flagErr.Type {
		case flags.ErrDuplicatedFlag, flags.ErrTag, flags.ErrInvalidTag, flags.ErrShortNameTooLong, flags.ErrMarshal:
			// A developer error in the configuration object, rather than an input error.
			panic(err)

		case flags.ErrCommandRequired:
			// Follow go-flags' "Please specify one command of: ..." with full usage.
			os.Stderr.WriteString("\n")
			writeUsage(parser)
			os.Exit(1)

		case flags.ErrHelp:
			if parser.Options&flags.PrintErrors == 0 {
				writeUsage(parser)
			}
			os.Exit(0)

		default:
			// go-flags has already printed a description of the input error.
			os.Exit(1)
		}
	}
}

func writeUsage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	fmt.Fprintf(os.Stderr, "\nVersion %s, built at %s.\n", Version, BuildDate)
}

// AddPrintConfigCmd to the Parser. The "print-config" command helps users
// test whether their applications are correctly configured, by exporting all
// runtime configuration in INI format.
func AddPrintConfigCmd(parser *flags.Parser, configName string) {
	_, err := parser.AddCommand("print-config", "Print combined configuration and exit", `
print-config parses the combined configuration from `+configName+`, flags,
and environment variables, and then writes the configuration to stdout in INI format.
`, &printConfig{parser})
	Must(err, "failed to add print-config command")
}

type printConfig struct {
	*flags.Parser `no-flag:"t"`
}

func (p printConfig) Execute([]string) error {
	var ini = flags.NewIniParser(p.Parser)
	ini.Write(os.Stdout, flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
	return nil
}
