package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gregLibert/fmcos/internal/config"
	"github.com/gregLibert/fmcos/internal/logging"
	"github.com/gregLibert/fmcos/internal/profile"
	"github.com/gregLibert/fmcos/pkg/fmcos"
	"github.com/gregLibert/fmcos/pkg/iso7816"
	"github.com/gregLibert/fmcos/pkg/pcsc"
)

const defaultProfile = "fmcos.yaml"

var isTerminal = term.IsTerminal

// card is an open session plus whatever must be released afterwards.
type card struct {
	*fmcos.Session
	profile *profile.Profile
	close   func()
}

// openCard loads the profile and connects to the first card presented. In simulation
// mode no reader is opened.
func openCard(cmd *cobra.Command) (*card, error) {
	cfg := config.Get()

	prof, err := loadProfile(cfg.Profile.Path)
	if err != nil {
		return nil, err
	}

	var transmitter iso7816.Transmitter
	closeFn := func() {}
	if !cfg.Session.Simulation {
		reader, err := pcsc.Open(cfg.Reader.Name)
		if err != nil {
			return nil, err
		}
		closeFn = func() {
			if err := reader.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to release reader")
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Waiting for a card on %s\n", reader.Name)
		uid, err := pcsc.WaitForCard(cmd.Context(), reader, cfg.Reader.WaitRetries, cfg.Reader.WaitInterval)
		if err != nil {
			closeFn()
			return nil, err
		}
		log.Info().Str("reader", reader.Name).Hex("uid", uid).Msg("card present")
		transmitter = reader
	}

	logger := log.Logger
	s := fmcos.NewSession(transmitter, fmcos.Config{
		Debug:      cfg.Session.Debug,
		Simulation: cfg.Session.Simulation,
		Logger:     &logger,
	})
	sessionLog := logging.Session(s.ID())
	sessionLog.Debug().Bool("simulation", s.Simulated()).Msg("session opened")

	return &card{Session: s, profile: prof, close: closeFn}, nil
}

// openApp opens the card, selects the wallet application and presents the profile
// PIN, the sequence every purse command starts with.
func openApp(cmd *cobra.Command) (*card, error) {
	c, err := openCard(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
		c.close()
		return nil, err
	}
	if _, err := c.VerifyPIN(c.profile.PIN.KeyID, c.profile.PIN.Value); err != nil {
		c.close()
		return nil, err
	}
	return c, nil
}

// loadProfile reads the profile. The default path may be absent, in which case the
// built-in wallet test profile is used.
func loadProfile(path string) (*profile.Profile, error) {
	prof, err := profile.Load(path)
	if err == nil {
		return prof, nil
	}
	if path == defaultProfile && errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Msg("profile not found, using built-in wallet test profile")
		return profile.Default(), nil
	}
	return nil, err
}

// readPIN returns the flag value, or prompts when stdin is a terminal. fallback is
// used otherwise; a nil fallback makes the flag mandatory.
func readPIN(cmd *cobra.Command, flag string, fallback []byte) ([]byte, error) {
	value, err := cmd.Flags().GetString(flag)
	if err != nil {
		return nil, err
	}
	if value == "" {
		fd := int(os.Stdin.Fd())
		if !isTerminal(fd) {
			if fallback == nil {
				return nil, fmt.Errorf("--%s is required", flag)
			}
			return fallback, nil
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", strings.ReplaceAll(flag, "-", " "))
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", flag, err)
		}
		value = string(raw)
	}
	return parseHex(flag, value)
}

func parseHex(name, value string) ([]byte, error) {
	var h profile.HexBytes
	if err := h.UnmarshalText([]byte(value)); err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return h, nil
}

// lineProtection resolves the --protect flag against the profile line protection key.
func lineProtection(cmd *cobra.Command, prof *profile.Profile) (fmcos.LineProtection, error) {
	name, err := cmd.Flags().GetString("protect")
	if err != nil {
		return fmcos.LineProtection{}, err
	}
	mode, err := fmcos.ParseProtection(name)
	if err != nil {
		return fmcos.LineProtection{}, err
	}
	if mode == fmcos.ProtectNone {
		return fmcos.LineProtection{}, nil
	}
	return fmcos.LineProtection{Mode: mode, Key: prof.Keys.LineProtection}, nil
}
