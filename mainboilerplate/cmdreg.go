package mainboilerplate

import (
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// CommandRegistry collects sub-commands of a program, keyed on the
// dot-separated path of their parent command ("" being the root), so that
// commands defined across files may register themselves from init().
type CommandRegistry map[string][]func(*flags.Command) error

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry { return make(CommandRegistry) }

// AddCommand registers a command |name| under the |parent| path, such as ""
// for a top-level command or "store" for "store <name>". |data| is the
// go-flags command value, which typically implements flags.Commander.
func (cr CommandRegistry) AddCommand(parent, name, short, long string, data interface{}) {
	cr[parent] = append(cr[parent], func(cmd *flags.Command) error {
		var _, err = cmd.AddCommand(name, short, long, data)
		return errors.WithMessagef(err, "adding command %q", strings.TrimPrefix(parent+"."+name, "."))
	})
}

// AddCommands adds commands registered under |path| to |cmd|. If |recursive|,
// commands registered under each added command are added as well.
func (cr CommandRegistry) AddCommands(path string, cmd *flags.Command, recursive bool) error {
	for _, fn := range cr[path] {
		if err := fn(cmd); err != nil {
			return err
		}
	}
	if !recursive {
		return nil
	}
	for _, sub := range cmd.Commands() {
		var subPath = sub.Name
		if path != "" {
			subPath = path + "." + sub.Name
		}
		if err := cr.AddCommands(subPath, sub, true); err != nil {
			return err
		}
	}
	return nil
}
