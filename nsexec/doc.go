/*
Package nsexec runs registered collection functions inside the namespaces of
another process, streaming their keyed results back as they are produced.

Switching the mount namespace of a multi-threaded process is impossible, and a
Go program is always multi-threaded. Instead of switching itself, the collector
process thus re-executes itself as a short-lived child. The child joins the
target's namespaces before the Go runtime spins up (courtesy of
[github.com/thediveo/gons]) and then runs the requested action. The action's
arguments travel to the child on its stdin, and the results travel back in CBOR
frames over a separate pipe on fd 3, leaving stdout and stderr free for
logging.

# Usage

Actions need to be registered under a unique name from an init function, so
that both the parent and the re-executed child know about them.

	func init() {
	    nsexec.Register("hostname", func(ctx context.Context, _ struct{}, yield func(string, string) bool) error {
	        name, err := os.Hostname()
	        if err != nil {
	            return err
	        }
	        yield("hostname", name)
	        return nil
	    })
	}

Next, the program (or test binary) must call [CheckAction] first thing in its
main function (or TestMain).

	func main() {
	    nsexec.CheckAction()
	    ...
	}

Finally, run the action in the namespaces of another process:

	for pair, err := range nsexec.Execute[struct{}, string](ctx, pid, []species.NamespaceType{species.CLONE_NEWUTS}, "hostname", struct{}{}) {
	    ...
	}
*/
package nsexec
