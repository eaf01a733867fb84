package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is a named set of strategy parameters.
type Profile struct {
	Name         string
	Symbol       string
	Period       string
	Interval     string
	BaseCurrency string
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

// NewRegistry loads an ini file whose sections are profiles:
//
//	[tech]
//	symbol = MSFT
//	base_currency = EUR
func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", path, err)
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section, err := cr.cfg.GetSection(name)
	if err != nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}

	return &Profile{
		Name:         name,
		Symbol:       strings.ToUpper(section.Key("symbol").String()),
		Period:       section.Key("period").String(),
		Interval:     section.Key("interval").String(),
		BaseCurrency: strings.ToUpper(section.Key("base_currency").String()),
	}, nil
}
