// icosim runs a confidential sale end to end in a single process.
//
// Example usage:
//
//	# Generate the oracle keys, this searches for two 1024 bit safe primes
//	icosim keygen -out oracle.key -pass secret
//
//	# Replay three contributions, close the sale, decrypt and claim
//	icosim run -key oracle.key -pass secret -contribs 0.05,0.03,0.02
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/confidential-ico/internal/hash"
	"github.com/taurusgroup/confidential-ico/pkg/confidential"
	"github.com/taurusgroup/confidential-ico/pkg/oracle"
	"github.com/taurusgroup/confidential-ico/pkg/pool"
	"github.com/taurusgroup/confidential-ico/protocols/ico"
	"github.com/taurusgroup/confidential-ico/protocols/token"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = cmdKeygen(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`icosim - confidential ICO simulator

Usage:
  icosim <command> [options]

Commands:
  keygen    Generate and seal the oracle keys
  run       Deploy a sale and its token, replay contributions, decrypt and claim
  help      Show this help message

Run "icosim <command> -h" for the options of a command.`)
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().
		Logger(), nil
}

func cmdKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "oracle.key", "path of the sealed keystore")
	pass := fs.String("pass", "", "passphrase protecting the keystore")
	workers := fs.Int("workers", 0, "prime search workers, 0 for one per CPU")
	logLevel := fs.String("log", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pass == "" {
		return errors.New("-pass is required")
	}
	log, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	pl := pool.NewPool(*workers)
	defer pl.TearDown()

	start := time.Now()
	log.Info().Int("workers", pl.Workers()).Msg("searching for safe primes")
	keys, err := oracle.GenerateKeys(pl)
	if err != nil {
		return err
	}
	if err = oracle.Save(*out, keys, *pass, oracle.DefaultKeystoreConfig()); err != nil {
		return err
	}
	log.Info().Str("path", *out).Dur("took", time.Since(start)).Msg("keystore written")
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	keyPath := fs.String("key", "", "sealed keystore, fresh keys are generated when empty")
	pass := fs.String("pass", "", "passphrase of the keystore")
	contribs := fs.String("contribs", "0.05,0.03,0.02", "comma separated contributions, in ETH")
	hardCap := fs.String("cap", "0.1", "hard cap, in ETH")
	closeSale := fs.Bool("close", true, "close the sale once the contributions are replayed")
	workers := fs.Int("workers", 2, "oracle workers")
	logLevel := fs.String("log", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	capWei, err := parseEther(*hardCap)
	if err != nil {
		return fmt.Errorf("-cap: %w", err)
	}
	var payments []*uint256.Int
	for _, s := range strings.Split(*contribs, ",") {
		v, err := parseEther(s)
		if err != nil {
			return fmt.Errorf("-contribs: %w", err)
		}
		payments = append(payments, v)
	}

	pl := pool.NewPool(0)
	defer pl.TearDown()
	var keys *oracle.Keys
	if *keyPath == "" {
		log.Warn().Msg("no keystore given, generating fresh oracle keys")
		keys, err = oracle.GenerateKeys(pl)
	} else {
		keys, err = oracle.Load(*keyPath, *pass)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sim, err := newSimulation(ctx, keys, pl, capWei, *workers, log)
	if err != nil {
		return err
	}
	defer sim.close()
	return sim.run(ctx, payments, *closeSale)
}

// parseEther parses a decimal amount of ETH into wei.
func parseEther(s string) (*uint256.Int, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if len(frac) > 18 {
		return nil, fmt.Errorf("%q has more than 18 decimals", s)
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", 18-len(frac)), "0")
	if digits == "" {
		digits = "0"
	}
	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", s, err)
	}
	return v, nil
}

func account(name string) common.Address {
	return common.BytesToAddress(hash.New("icosim account", name).Sum())
}

type simulation struct {
	engine *confidential.Engine
	oracle *oracle.Oracle
	token  *token.Token
	sale   *ico.Sale
	owner  common.Address

	tickets chan confidential.Ticket
	out     chan *oracle.Response
	// responses holds what the oracle answered, by handle
	responses map[confidential.Handle]*oracle.Response
	served    chan error

	log zerolog.Logger
}

func newSimulation(ctx context.Context, keys *oracle.Keys, pl *pool.Pool, hardCap *uint256.Int, workers int, log zerolog.Logger) (*simulation, error) {
	engine := confidential.NewEngine(keys.Paillier.PublicKey, log)
	o, err := oracle.New(engine, keys, pl, log)
	if err != nil {
		engine.Close()
		return nil, err
	}
	owner := account("owner")

	tokenCfg := token.DefaultConfig(owner, engine, o.Verifier())
	tokenCfg.Log = log
	tok, err := token.New(tokenCfg)
	if err != nil {
		engine.Close()
		return nil, err
	}
	saleCfg := ico.DefaultConfig(owner, engine, o.Verifier())
	saleCfg.HardCap = hardCap
	saleCfg.Log = log
	sale, err := ico.New(saleCfg)
	if err != nil {
		engine.Close()
		return nil, err
	}
	if err = sale.SetTokenContract(owner, tok); err != nil {
		return nil, err
	}
	if err = tok.SetICOContract(owner, sale.Address()); err != nil {
		return nil, err
	}

	s := &simulation{
		engine:    engine,
		oracle:    o,
		token:     tok,
		sale:      sale,
		owner:     owner,
		tickets:   make(chan confidential.Ticket, 16),
		out:       make(chan *oracle.Response, 16),
		responses: make(map[confidential.Handle]*oracle.Response),
		served:    make(chan error, 1),
		log:       log,
	}
	engine.SubscribeTickets(s.tickets)
	go func() { s.served <- o.Serve(ctx, s.tickets, workers, s.out) }()
	return s, nil
}

func (s *simulation) close() {
	s.sale.Close()
	s.token.Close()
	s.engine.Close()
}

// await returns the oracle's response for h.
func (s *simulation) await(ctx context.Context, h confidential.Handle) (*oracle.Response, error) {
	for {
		if res, ok := s.responses[h]; ok {
			return res, nil
		}
		select {
		case res := <-s.out:
			s.responses[res.Ticket.Handle] = res
		case err := <-s.served:
			return nil, fmt.Errorf("oracle stopped: %w", err)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *simulation) run(ctx context.Context, payments []*uint256.Int, closeSale bool) error {
	contributors := make([]common.Address, 0, len(payments))
	for i, payment := range payments {
		who := account(fmt.Sprintf("contributor %d", i))
		if !payment.IsUint64() {
			return fmt.Errorf("contribution %d does not fit 64 bits", i)
		}
		if err := s.sale.Contribute(who, payment, payment.Uint64()); err != nil {
			s.log.Warn().Err(err).Str("contributor", who.Hex()).Msg("contribution rejected")
			continue
		}
		contributors = append(contributors, who)
	}

	if closeSale && !s.sale.Finalized() {
		if err := s.sale.CloseSale(s.owner); err != nil {
			return err
		}
	}
	if !s.sale.Finalized() {
		s.printReport(contributors)
		return nil
	}

	if err := s.sale.MakeTotalDecryptable(s.owner); err != nil {
		return err
	}
	for _, who := range contributors {
		if err := s.sale.MakeMyContributionDecryptable(who); err != nil {
			return err
		}
	}

	res, err := s.await(ctx, s.sale.EncryptedTotal())
	if err != nil {
		return err
	}
	if err = s.sale.VerifyAndSetTotal(s.owner, res.Clear, res.Proof); err != nil {
		return err
	}
	var holders []common.Address
	for _, who := range contributors {
		res, err := s.await(ctx, s.sale.EncryptedContribution(who))
		if err != nil {
			return err
		}
		if err = s.sale.VerifyMyContribution(who, res.Clear, res.Proof); err != nil {
			return err
		}
		claimed, err := s.sale.ClaimTokens(who)
		if err != nil {
			return err
		}
		// a share rounded down to nothing mints no balance
		if claimed == 0 {
			continue
		}
		if err = s.token.MakeMyBalanceDecryptable(who); err != nil {
			return err
		}
		holders = append(holders, who)
	}
	for _, who := range holders {
		res, err := s.await(ctx, s.token.BalanceOf(who))
		if err != nil {
			return err
		}
		if err = s.token.VerifyMyBalance(who, res.Clear, res.Proof); err != nil {
			return err
		}
	}
	if _, err = s.sale.WithdrawFunds(s.owner); err != nil {
		return err
	}

	s.printReport(contributors)
	return nil
}

func (s *simulation) printReport(contributors []common.Address) {
	info := s.sale.SaleInfo()
	fmt.Printf("sale     %s\n", s.sale.Address().Hex())
	fmt.Printf("token    %s\n", s.token.Address().Hex())
	fmt.Printf("window   %s → %s (finalized: %t)\n", info.Start.Format(time.RFC3339), info.End.Format(time.RFC3339), info.Finalized)
	fmt.Printf("raised   %s wei of %s\n", s.sale.Raised().Dec(), s.sale.HardCap().Dec())
	fmt.Printf("total    %d (decryptable: %t)\n", info.ClearTotal, info.TotalDecryptable)
	fmt.Printf("supply   %d %s\n\n", s.token.TotalSupply(), s.token.Info().Symbol)

	fmt.Printf("%-44s %22s %22s %8s %16s\n", "contributor", "paid", "amount", "claimed", "balance")
	for _, who := range contributors {
		c := s.sale.Contribution(who)
		fmt.Printf("%-44s %22s %22d %8t %16d\n", who.Hex(), c.Paid.Dec(), c.ClearAmount, c.TokensClaimed, s.token.ClearBalance(who))
	}
}
