package cmd

import (
	"os"
	"time"

	"github.com/dux-project/dux/common"
	"github.com/dux-project/dux/remote"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// profileArgs are the connection flags of remote commands.
type profileArgs struct {
	host          string
	port          int
	user          string
	auth          string
	key           string
	passphraseEnv string
	passwordEnv   string
	knownHosts    string
	timeout       time.Duration
}

func (args *profileArgs) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&args.host, "host", "", "Remote host name or IP")
	cmd.MarkFlagRequired("host")
	cmd.Flags().IntVar(&args.port, "port", 22, "SSH port")
	cmd.Flags().StringVar(&args.user, "user", os.Getenv("USER"), "SSH user name")
	cmd.Flags().StringVar(&args.auth, "auth", string(remote.AuthKey), "Authentication method: key, password or agent")
	cmd.Flags().StringVar(&args.key, "key", "", "Private key file, defaults to the usual keys under ~/.ssh")
	cmd.Flags().StringVar(&args.passphraseEnv, "passphrase-env", "", "Environment variable holding the private key passphrase")
	cmd.Flags().StringVar(&args.passwordEnv, "password-env", "DUX_SSH_PASSWORD", "Environment variable holding the password")
	cmd.Flags().StringVar(&args.knownHosts, "known-hosts", "", "Known hosts file, defaults to ~/.ssh/known_hosts")
	cmd.Flags().DurationVar(&args.timeout, "connect-timeout", 10*time.Second, "SSH connect timeout")
}

func (args *profileArgs) profile() *remote.Profile {
	profile := remote.Profile{
		Host:       args.host,
		Port:       args.port,
		Username:   args.user,
		Auth:       remote.AuthMethod(args.auth),
		KeyPath:    args.key,
		KnownHosts: args.knownHosts,
		Timeout:    args.timeout,
	}

	if profile.Auth == remote.AuthPassword {
		profile.Password = os.Getenv(args.passwordEnv)
	}

	if len(args.passphraseEnv) > 0 {
		profile.Passphrase = os.Getenv(args.passphraseEnv)
	}

	profile.Normalize()

	if err := profile.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid connection profile")
	}

	return &profile
}

var (
	remoteArgs struct {
		outputArgs
		profileArgs

		tool         string
		listingDepth int
	}

	remoteCmd = &cobra.Command{
		Use:   "remote [path]",
		Short: "Scan a directory of a remote host over SSH",
		Args:  cobra.MaximumNArgs(1),
		Run:   scanRemote,
	}

	remoteTestCmd = &cobra.Command{
		Use:   "remote-test",
		Short: "Test the SSH connection to a remote host",
		Run:   testRemote,
	}

	remoteTestArgs profileArgs
)

func init() {
	remoteArgs.outputArgs.register(remoteCmd)
	remoteArgs.profileArgs.register(remoteCmd)

	remoteCmd.Flags().StringVar(&remoteArgs.tool, "tool", "dux", "Companion tool to scan with on the remote host")
	remoteCmd.Flags().IntVar(&remoteArgs.listingDepth, "listing-depth", 4, "Max depth of the fallback listing")

	remoteTestArgs.register(remoteTestCmd)

	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(remoteTestCmd)
}

func newLogOption() common.LogOption {
	return common.WithLogger(logrus.StandardLogger())
}

func scanRemote(_ *cobra.Command, args []string) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}

	ctx, cancel := remoteArgs.outputArgs.context()
	defer cancel()

	profile := remoteArgs.profileArgs.profile()

	adapter := remote.NewAdapter(remote.NewSSHRunner(newLogOption()), nil, remote.Options{
		Tool:         remoteArgs.tool,
		ListingDepth: remoteArgs.listingDepth,
	}, newLogOption())

	start := time.Now()

	result, err := run(ctx, adapter.Source(profile, path))
	if err != nil {
		logrus.WithError(err).WithField("profile", profile).Fatal("Failed to scan remote directory")
	}

	if result.Partial {
		logrus.Warn("Remote listing incomplete, some directories could not be read")
	}

	if err = remoteArgs.outputArgs.write(result, time.Since(start)); err != nil {
		logrus.WithError(err).Fatal("Failed to write scan result")
	}
}

func testRemote(*cobra.Command, []string) {
	profile := remoteTestArgs.profile()

	adapter := remote.NewAdapter(remote.NewSSHRunner(newLogOption()), nil, remote.Options{}, newLogOption())

	ctx, cancel := interruptContext()
	defer cancel()

	result, err := adapter.Test(ctx, profile)
	if err != nil {
		logrus.WithError(err).Fatal("Connection test interrupted")
	}

	fields := logrus.Fields{
		"profile": profile,
		"server":  result.ServerInfo,
		"latency": result.Latency,
	}

	if !result.Success {
		logrus.WithFields(fields).Fatal(result.Message)
	}

	logrus.WithFields(fields).Info(result.Message)
}
