package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illarion/seedvault/cmd"
	"github.com/illarion/seedvault/internal/config"
	"github.com/illarion/seedvault/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
		return
	case "completion":
		runCompletion(ctx, os.Args[2:])
		return
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	switch os.Args[1] {
	case "init":
		runInit(ctx, cfg, os.Args[2:])
	case "seal":
		runSeal(ctx, cfg, os.Args[2:])
	case "sign":
		runSign(ctx, cfg, os.Args[2:])
	case "address":
		runAddress(ctx, cfg, os.Args[2:])
	case "verify":
		runVerify(ctx, cfg, os.Args[2:])
	case "item":
		runItem(ctx, cfg, os.Args[2:])
	case "serve":
		runServe(ctx, cfg, os.Args[2:])
	case "status":
		runStatus(ctx, cfg, os.Args[2:])
	case "compact":
		runCompact(ctx, cfg, os.Args[2:])
	case "keyring":
		runKeyring(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setupLogging(c config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: unknown log level %q, using warn\n", c.Level)
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runInit(_ context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init(cfg)
}

func runSeal(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	seed := fs.String("seed", "", "Raw seed in hex instead of a mnemonic")
	passphrase := fs.String("passphrase", "", "BIP39 passphrase")
	out := fs.String("out", "", "Write the envelope to a file")
	force := fs.Bool("force", false, "Replace an existing sealed vault")
	parse(fs, args)

	cmd.Seal(ctx, cfg, cmd.SealOptions{
		SeedHex:    *seed,
		Passphrase: *passphrase,
		Out:        *out,
		Force:      *force,
	})
}

func runSign(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	path := fs.String("path", core.BitcoinPath, "Derivation path")
	hash := fs.String("hash", "", "32-byte digest in hex")
	network := fs.String("network", "mainnet", "Network")
	vaultFile := fs.String("vault", "", "Read the envelope from a file")
	asJSON := fs.Bool("json", false, "Print JSON")
	parse(fs, args)

	cmd.Sign(ctx, cfg, cmd.SignOptions{
		Path:    *path,
		Hash:    *hash,
		Network: *network,
		Vault:   *vaultFile,
		JSON:    *asJSON,
	})
}

func runAddress(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	vaultFile := fs.String("vault", "", "Read the envelope from a file")
	asJSON := fs.Bool("json", false, "Print JSON")
	parse(fs, args)

	cmd.Address(ctx, cfg, *vaultFile, *asJSON)
}

func runVerify(_ context.Context, _ *config.Config, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	network := fs.String("network", "mainnet", "Network")
	hash := fs.String("hash", "", "32-byte digest in hex")
	signature := fs.String("signature", "", "Signature in hex")
	pubKey := fs.String("pubkey", "", "Public key in hex")
	parse(fs, args)

	cmd.Verify(*network, *hash, *signature, *pubKey)
}

func runItem(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: seedvault item <set|get|has|rm|ls> [flags] [key] [value]")
		os.Exit(1)
	}
	action := args[0]

	fs := flag.NewFlagSet("item "+action, flag.ExitOnError)
	biometric := fs.Bool("biometric", false, "Authenticate and gate the item")
	seconds := fs.Int("seconds", int(cfg.BiometricTTL/time.Second), "Authentication window in seconds")
	parse(fs, args[1:])
	opts := cmd.ItemOptions{Biometric: *biometric, Seconds: *seconds}

	rest := fs.Args()
	need := map[string]int{"set": 2, "get": 1, "has": 1, "rm": 1, "ls": 0}
	n, ok := need[action]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown item action: %s\n", action)
		os.Exit(1)
	}
	if len(rest) != n {
		fmt.Fprintf(os.Stderr, "Error: item %s takes %d argument(s)\n", action, n)
		os.Exit(1)
	}

	switch action {
	case "set":
		cmd.ItemSet(ctx, cfg, rest[0], rest[1], opts)
	case "get":
		cmd.ItemGet(ctx, cfg, rest[0], opts)
	case "has":
		cmd.ItemHas(cfg, rest[0])
	case "rm":
		cmd.ItemRemove(ctx, cfg, rest[0], opts)
	case "ls":
		cmd.ItemList(cfg)
	}
}

func runServe(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	parse(fs, args)

	cmd.Serve(ctx, cfg, *metricsAddr)
}

func runStatus(_ context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parse(fs, args)

	cmd.Status(cfg)
}

func runCompact(_ context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	cmd.Compact(cfg)
}

func runKeyring(_ context.Context, cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: seedvault keyring <status|delete>")
		os.Exit(1)
	}
	switch args[0] {
	case "status":
		cmd.KeyringStatus(cfg)
	case "delete":
		cmd.KeyringDelete(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring action: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: seedvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("seedvault - PIN-sealed HD wallet seed vault and signer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  seedvault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a seedvault database")
	fmt.Println("  seal        Encrypt a seed or mnemonic under a PIN")
	fmt.Println("  sign        Sign a 32-byte digest")
	fmt.Println("  address     Show default account addresses")
	fmt.Println("  verify      Check a signature")
	fmt.Println("  item        Store, read and remove encrypted items")
	fmt.Println("  serve       Run the JSON line bridge on stdin/stdout")
	fmt.Println("  status      Show database status")
	fmt.Println("  compact     Compact the database to reclaim disk space")
	fmt.Println("  keyring     Manage platform keys in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  seedvault init                                  # Create database")
	fmt.Println("  seedvault seal                                  # Seal a mnemonic")
	fmt.Println("  seedvault sign --hash <hex> --network mainnet   # Sign a digest")
	fmt.Println("  seedvault item set api-token s3cr3t             # Store an item")
	fmt.Println()
	fmt.Println("Use 'seedvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("seedvault init")
		fmt.Println()
		fmt.Println("Creates the seedvault database (default .seedvault, see SEEDVAULT_DB).")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  seedvault init")
	case "seal":
		fmt.Println("seedvault seal [--seed <hex>] [--passphrase <p>] [--out <file>] [--force]")
		fmt.Println()
		fmt.Println("Encrypts a seed under a PIN. Without --seed, reads an existing BIP39")
		fmt.Println("mnemonic and converts it to its seed. Mnemonics are never generated.")
		fmt.Println("The envelope is stored in the database unless --out is given.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --seed         Raw 16 to 64 byte seed in hex")
		fmt.Println("  --passphrase   BIP39 passphrase for the mnemonic")
		fmt.Println("  --out          Write the envelope JSON to a file")
		fmt.Println("  --force        Replace an already sealed vault")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  seedvault seal")
		fmt.Println("  seedvault seal --out vault.json")
	case "sign":
		fmt.Println("seedvault sign --hash <hex> [--path <path>] [--network <net>] [--vault <file>] [--json]")
		fmt.Println()
		fmt.Println("Signs a 32-byte digest with the key derived at --path.")
		fmt.Println("Bitcoin and Stacks networks produce DER signatures.")
		fmt.Println("RSK and Ethereum networks produce r || s || v with a recovery id.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Printf("  --path      Derivation path (default %s)\n", core.BitcoinPath)
		fmt.Println("  --hash      Digest in hex, optionally 0x-prefixed")
		fmt.Println("  --network   mainnet, testnet, stacks, rsk, ethereum, ... (default mainnet)")
		fmt.Println("  --vault     Read the envelope from a file")
		fmt.Println("  --json      Print the result as JSON")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  seedvault sign --hash e3b0c442...b855")
		fmt.Printf("  seedvault sign --path \"%s\" --network rsk --hash 0x...\n", core.EVMPath)
	case "address":
		fmt.Println("seedvault address [--vault <file>] [--json]")
		fmt.Println()
		fmt.Println("Shows the Bitcoin (P2WPKH), EVM and Stacks public key of the default accounts.")
	case "verify":
		fmt.Println("seedvault verify --network <net> --hash <hex> --signature <hex> --pubkey <hex>")
		fmt.Println()
		fmt.Println("Checks a signature produced by 'seedvault sign'.")
		fmt.Println("Does not require a PIN.")
	case "item":
		fmt.Println("seedvault item <set|get|has|rm|ls> [--biometric] [--seconds <n>] [key] [value]")
		fmt.Println()
		fmt.Println("Manages items encrypted under platform keys in the OS keyring.")
		fmt.Println("Flags must come before the key.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --biometric   Verify the vault PIN first and gate the item behind it")
		fmt.Println("  --seconds     Length of the authentication window (minimum 10, default biometric_ttl)")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  seedvault item set api-token s3cr3t")
		fmt.Println("  seedvault item get --biometric api-token")
		fmt.Println("  seedvault item ls")
	case "serve":
		fmt.Println("seedvault serve [--metrics-addr <addr>]")
		fmt.Println()
		fmt.Println("Reads one JSON request per line from stdin and writes one JSON")
		fmt.Println("response per line to stdout. The session lives as long as the process.")
		fmt.Println()
		fmt.Println("Methods: unlock, sign, addresses, clearSession, sessionStatus,")
		fmt.Println("setItem, getItem, hasItem, removeItem, authenticate,")
		fmt.Println("clearBiometricSession, isAvailable")
	case "status":
		fmt.Println("seedvault status")
		fmt.Println()
		fmt.Println("Shows the database, vault and keyring state.")
		fmt.Println("Does not require a PIN.")
	case "compact":
		fmt.Println("seedvault compact")
		fmt.Println()
		fmt.Println("Compacts the database to reclaim unused disk space.")
		fmt.Println("Removed items may otherwise linger in free pages.")
	case "keyring":
		fmt.Println("seedvault keyring <status|delete>")
		fmt.Println()
		fmt.Println("Shows or removes the platform keys stored in the OS keyring.")
		fmt.Println("Deleting them makes every stored item unreadable.")
	case "completion":
		fmt.Println("seedvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(seedvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(seedvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  seedvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
