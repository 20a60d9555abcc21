package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/antoinerrr/ssh-ecs/internal/buildinfo"
	"github.com/antoinerrr/ssh-ecs/internal/cliconfig"
	"github.com/antoinerrr/ssh-ecs/internal/core"
	"github.com/antoinerrr/ssh-ecs/pkg/client"
)

var connectPrintOnly bool

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Browse ECS and open an SSH session into a container",
	Long: `Walks product, cluster, service, task and container step by step, then
opens an SSH session using a one-time credential. If the current policy
denies the selection, offers to request a temporary escalation instead.`,
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().BoolVar(&connectPrintOnly, "print", false, "Print the ssh command instead of executing it")
}

func runConnect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cli, cfg, err := getClient()
	if err != nil {
		return err
	}

	menu, err := cli.Menu(ctx)
	if err != nil {
		if client.IsInvalidCredential(err) {
			return logError(err, "", "not authenticated, run 'sshecs login <github-token>' first")
		}
		return logError(err, "", "failed to fetch menu from server")
	}

	if outdated(buildinfo.Version, menu.MinVersion) {
		return fmt.Errorf("client version %s is older than the server minimum %s, please upgrade", buildinfo.Version, menu.MinVersion)
	}
	log.Debug().Msgf("authenticated as %s", menu.User)

	sel, err := runStepper(ctx, cli, cfg, menu.Products)
	if err != nil {
		return err
	}

	grant, err := cli.Connect(ctx, sel.product, sel.cluster, sel.task, sel.container)
	if err != nil {
		if !client.IsNotAuthorized(err) {
			return logError(err, "", "connection failed")
		}
		grant, err = escalate(ctx, cli, cfg, sel)
		if err != nil {
			return err
		}
	}

	return openSession(cfg, grant)
}

// selection is the fully-walked stepper result. Task and container keep the
// server's pass-through values so resolution stays deterministic.
type selection struct {
	product   string
	cluster   string
	service   string
	task      string
	container string
}

const backOption = "← back"

// runStepper walks the five levels with go-back support. Each level is
// re-fetched on entry so going back and forward again reflects live state.
func runStepper(ctx context.Context, cli *client.Client, cfg *cliconfig.CLIConfig, products map[string][]string) (*selection, error) {
	productNames := filterValues(keys(products), cfg.Filters.IncludeProducts, cfg.Filters.ExcludeProducts)
	if len(productNames) == 0 {
		return nil, fmt.Errorf("no products available (check your filters)")
	}

	sel := &selection{}
	step := 0
	for {
		switch step {
		case 0:
			choice, back, err := choose("Product", productNames, false)
			if err != nil {
				return nil, err
			}
			if back {
				continue
			}
			sel.product = choice
			step = 1

		case 1:
			choice, back, err := choose("Cluster", products[sel.product], true)
			if err != nil {
				return nil, err
			}
			if back {
				step = 0
				continue
			}
			sel.cluster = choice
			step = 2

		case 2:
			services, err := cli.Services(ctx, sel.product, sel.cluster)
			if err != nil {
				return nil, logError(err, "", "failed to list services")
			}
			services = filterValues(services, cfg.Filters.IncludeServices, cfg.Filters.ExcludeServices)
			choice, back, err := chooseARN("Service", services)
			if err != nil {
				return nil, err
			}
			if back {
				step = 1
				continue
			}
			sel.service = choice
			step = 3

		case 3:
			tasks, err := cli.Tasks(ctx, sel.product, sel.cluster, sel.service)
			if err != nil {
				return nil, logError(err, "", "failed to list tasks")
			}
			choice, back, err := chooseARN("Task", tasks)
			if err != nil {
				return nil, err
			}
			if back {
				step = 2
				continue
			}
			sel.task = choice
			step = 4

		case 4:
			containers, err := cli.Containers(ctx, sel.product, sel.cluster, sel.task)
			if err != nil {
				return nil, logError(err, "", "failed to list containers")
			}
			choice, back, err := choose("Container", containers, true)
			if err != nil {
				return nil, err
			}
			if back {
				step = 3
				continue
			}
			sel.container = choice
			return sel, nil
		}
	}
}

// choose presents one stepper level. The returned value is the raw option,
// untouched by display shortening.
func choose(label string, options []string, withBack bool) (string, bool, error) {
	return chooseDisplay(label, options, options, withBack)
}

// chooseARN shows only the trailing ARN segment but returns the full ARN.
func chooseARN(label string, options []string) (string, bool, error) {
	display := make([]string, len(options))
	for i, o := range options {
		display[i] = core.DisplayName(o)
	}
	return chooseDisplay(label, options, display, true)
}

func chooseDisplay(label string, values, display []string, withBack bool) (string, bool, error) {
	if len(values) == 0 {
		if withBack {
			log.Warn().Msgf("nothing to select for %s", label)
			return "", true, nil
		}
		return "", false, fmt.Errorf("nothing to select for %s", label)
	}

	opts := display
	if withBack {
		opts = append([]string{backOption}, display...)
	}

	var idx int
	prompt := &survey.Select{
		Message:  label + ":",
		Options:  opts,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &idx); err != nil {
		return "", false, err
	}

	if withBack {
		if idx == 0 {
			return "", true, nil
		}
		idx--
	}
	return values[idx], false, nil
}

// escalate runs the split-token request path: file the request, then poll at
// a fixed interval until an admin approves or the budget runs out.
func escalate(ctx context.Context, cli *client.Client, cfg *cliconfig.CLIConfig, sel *selection) (*core.ConnectionGrant, error) {
	log.Warn().Msgf("you are not authorized to access %s - %s", bold(sel.product), bold(sel.cluster))

	var proceed bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Request temporary access from an administrator?",
		Default: true,
	}, &proceed); err != nil {
		return nil, err
	}
	if !proceed {
		return nil, BeQuietError{}
	}

	token, err := cli.RequestAccess(ctx, sel.product, sel.cluster, sel.task, sel.container)
	if err != nil {
		return nil, logError(err, "", "failed to request access")
	}
	log.Debug().Msgf("access request filed, token %s", truncate(token, 12))

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " waiting for an administrator to approve..."
	sp.Start()
	grant, err := cli.WaitForApproval(ctx, token, cfg.Poll.Attempts, cfg.Poll.Interval)
	sp.Stop()
	if err != nil {
		return nil, logError(err, "", "access request was not approved")
	}

	logSuccess("access granted")
	return grant, nil
}

// openSession launches ssh with the one-time credential. sshpass feeds the
// OTP non-interactively when available; otherwise the credential is printed
// so the user can paste it at the password prompt.
func openSession(cfg *cliconfig.CLIConfig, grant *core.ConnectionGrant) error {
	target := fmt.Sprintf("%s@%s", cfg.SSH.User, grant.Address)

	args := strings.Fields(cfg.SSH.Options)
	args = append(args, target)

	logSuccess("connecting to %s (container runtime %s)", bold(target), faint(truncate(grant.RuntimeID, 12)))

	var command *exec.Cmd
	if _, err := exec.LookPath("sshpass"); err == nil && !connectPrintOnly {
		command = exec.Command("sshpass", append([]string{"-p", grant.OTP, cfg.SSH.Command}, args...)...)
	} else {
		log.Info().Msgf("one-time password: %s", bold(grant.OTP))
		command = exec.Command(cfg.SSH.Command, args...)
	}

	if connectPrintOnly {
		fmt.Println(strings.Join(command.Args, " "))
		return nil
	}

	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	return command.Run()
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// filterValues applies anchored include/exclude regular expressions. An empty
// or invalid pattern is skipped with a warning, leaving that side unfiltered.
func filterValues(values []string, include, exclude string) []string {
	incRe := compileOrNil(include)
	excRe := compileOrNil(exclude)

	out := make([]string, 0, len(values))
	for _, v := range values {
		if incRe != nil && !incRe.MatchString(v) {
			continue
		}
		if excRe != nil && excRe.MatchString(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// compileOrNil anchors the pattern so "prod" matches exactly "prod", not any
// value containing it.
func compileOrNil(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		log.Warn().Msgf("invalid filter pattern %q, ignoring it", pattern)
		return nil
	}
	return re
}

// outdated compares dotted versions after stripping a leading "v". A version
// that does not parse never blocks the client.
func outdated(have, minimum string) bool {
	if minimum == "" {
		return false
	}
	h, m := parseVersion(have), parseVersion(minimum)
	if h == nil || m == nil {
		return false
	}
	for i := 0; i < len(h) && i < len(m); i++ {
		if h[i] != m[i] {
			return h[i] < m[i]
		}
	}
	return len(h) < len(m)
}

func parseVersion(s string) []int {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
