package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/offline"
	"github.com/trezcool/academia/services/syncer"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password must not be empty")
	errNoToken       = errors.New("login failed: no token in the response")
)

type app struct {
	client   *syncer.Client
	syncer   *syncer.Syncer
	store    offline.Store
	interval time.Duration
	out      io.Writer
}

func newApp(client *syncer.Client, sy *syncer.Syncer, store offline.Store, interval time.Duration) *app {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &app{client: client, syncer: sy, store: store, interval: interval, out: os.Stdout}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "desktop",
		Short:         "Academia Hub offline client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.client.LoadToken(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.AddCommand(
		a.loginCmd(),
		a.statusCmd(),
		a.syncCmd(),
		a.pullCmd(),
		a.getCmd(),
		a.sendCmd(),
		a.conflictsCmd(),
		a.resolveCmd(),
		a.watchCmd(),
	)
	return root
}

// run executes the command line args (program name included).
func (a *app) run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.rootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(ctx)
}

func (a *app) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding output")
	}
	a.printf("%s\n", data)
	return nil
}

func (a *app) printBody(res syncer.Response) error {
	if len(res.Body) == 0 {
		a.printf("%d\n", res.Status)
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(res.Body, &v); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return a.printJSON(v)
}

func (a *app) loginCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the token for the next sessions; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("Password: ")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			a.printf("\n")
			if err != nil {
				return err
			}
			if len(pwd) == 0 {
				return errEmptyPassword
			}
			return a.login(cmd.Context(), uname, string(pwd))
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) login(ctx context.Context, uname, pwd string) error {
	res, err := a.client.Do(ctx, "POST", "/api/auth/login", map[string]string{"username": uname, "password": pwd})
	if err != nil {
		return err
	}
	var body struct {
		Token string `json:"token"`
		User  struct {
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err = json.Unmarshal(res.Body, &body); err != nil {
		return errors.Wrap(err, "decoding login response")
	}
	if body.Token == "" {
		return errNoToken
	}
	if err = a.client.SetToken(ctx, body.Token); err != nil {
		return err
	}
	a.printf("logged in as %s (%s)\n", body.User.Name, body.User.Role)
	return nil
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the connection state and the queued changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.client.Ping(cmd.Context())
			st, err := a.syncer.Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.printJSON(st)
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay the queued changes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.syncer.Sync(cmd.Context())
			if perr := a.printJSON(rep); perr != nil {
				return perr
			}
			return err
		},
	}
}

func (a *app) pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [RESOURCE...]",
		Short: "Refresh the cached collections, all of them by default",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.syncer.Pull(cmd.Context(), args...); err != nil {
				return err
			}
			a.printf("pulled\n")
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get PATH",
		Short: "Read an API path, from the cache when offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.Do(cmd.Context(), "GET", apiPath(args[0]), nil)
			if err != nil {
				return err
			}
			if res.FromCache {
				a.printf("# offline: cached copy\n")
			}
			return a.printBody(res)
		},
	}
}

func (a *app) sendCmd() *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "send METHOD PATH",
		Short: "Send a mutation; it is queued when offline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body interface{}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return core.NewFieldError("data", "data must be valid JSON")
				}
				body = json.RawMessage(data)
			}
			res, err := a.client.Do(cmd.Context(), strings.ToUpper(args[0]), apiPath(args[1]), body)
			if errors.Cause(err) == syncer.ErrQueued {
				a.printf("# offline: change queued\n")
				err = nil
			}
			if err != nil {
				return err
			}
			return a.printBody(res)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body")
	return cmd
}

func (a *app) conflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List the changes waiting for a resolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listConflicts(cmd.Context())
		},
	}
}

func (a *app) listConflicts(ctx context.Context) error {
	var changes []offline.Change
	for _, status := range []string{offline.ChangeConflict, offline.ChangeFailed} {
		chs, err := a.store.Changes(ctx, status)
		if err != nil {
			return err
		}
		changes = append(changes, chs...)
	}
	if len(changes) == 0 {
		a.printf("no conflicts\n")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tMETHOD\tPATH\tERROR")
	for _, ch := range changes {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", ch.ID, ch.Status, ch.Method, ch.Path, ch.LastError)
	}
	return w.Flush()
}

func (a *app) resolveCmd() *cobra.Command {
	var keepLocal bool
	cmd := &cobra.Command{
		Use:   "resolve ID",
		Short: "Settle a conflict: keep the server copy, or push the local one with --keep-local",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return core.NewFieldError("id", "id must be a number")
			}
			if err = a.syncer.Resolve(cmd.Context(), id, keepLocal); err != nil {
				return err
			}
			a.printf("change %d resolved\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepLocal, "keep-local", false, "push the local change over the server copy")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Sync in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("syncing every %s, ctrl+c to stop\n", a.interval)
			err := a.syncer.Run(cmd.Context(), a.interval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// apiPath prefixes bare resource paths with /api.
func apiPath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/health" && !strings.HasPrefix(path, "/api/") {
		path = "/api" + path
	}
	return path
}
