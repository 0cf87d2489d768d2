package shell

// Command wraps a callable and the description shown by help.
type Command struct {
	Description string
	fn          func(args ...string) error
}

// NewCommand returns a Command that runs fn.
func NewCommand(fn func(args ...string) error, description string) *Command {
	return &Command{
		Description: description,
		fn:          fn,
	}
}

// Execute invokes the callable with args in order. The number of arguments is not checked here; commands that need
// a particular count validate it themselves.
func (c *Command) Execute(args ...string) error {
	return c.fn(args...)
}
