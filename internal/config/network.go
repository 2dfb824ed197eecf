package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// alchemyURLFormat builds a hosted endpoint from the network name and API token.
const alchemyURLFormat = "https://eth-%s.alchemyapi.io/v2/%s"

// maxNetworkTypoDistance is the largest edit distance offered as a suggestion.
const maxNetworkTypoDistance = 3

// Network is a fully resolved network selection.
type Network struct {
	Name    string
	RPC     string
	ChainID int64
}

// ResolveNetwork looks up the selected network and builds its RPC URL.
func (c *Config) ResolveNetwork() (Network, error) {
	return c.ResolveNetworkByName(c.Network)
}

// ResolveNetworkByName resolves one named network.
// An explicit RPC URL wins over the Alchemy template.
func (c *Config) ResolveNetworkByName(name string) (Network, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	nc, ok := c.Networks[name]
	if !ok {
		err := tlerr.WithDetails(tlerr.ErrUnknownNetwork, map[string]string{"network": name})
		if s := suggestNetwork(name, c.NetworkNames()); s != "" {
			err = tlerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", s))
		}
		return Network{}, err
	}

	rpcURL := nc.RPC
	if rpcURL == "" && nc.Alchemy {
		if c.AlchemyToken == "" {
			return Network{}, tlerr.WithSuggestion(
				tlerr.WithDetails(tlerr.ErrConfigInvalid, map[string]string{
					"network": name,
					"reason":  "ALCHEMY_TOKEN is required for hosted networks",
				}),
				"export ALCHEMY_TOKEN=<your api key> or set networks."+name+".rpc",
			)
		}
		rpcURL = fmt.Sprintf(alchemyURLFormat, name, c.AlchemyToken)
	}
	if rpcURL == "" {
		return Network{}, tlerr.WithDetails(tlerr.ErrConfigInvalid, map[string]string{
			"network": name,
			"reason":  "no rpc url",
		})
	}

	return Network{Name: name, RPC: rpcURL, ChainID: nc.ChainID}, nil
}

// NetworkNames returns the configured network names in sorted order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// suggestNetwork finds the closest known network name within the typo threshold.
func suggestNetwork(input string, names []string) string {
	suggestion := ""
	minDist := maxNetworkTypoDistance + 1
	for _, name := range names {
		dist := levenshtein.ComputeDistance(input, name)
		if dist < minDist {
			minDist = dist
			suggestion = name
		}
	}
	return suggestion
}
