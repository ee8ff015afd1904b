package config

import (
	"fmt"
	"os"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Instruments instrument catalog and margin rate per class
type Instruments struct {
	Catalog     model.Catalog
	MarginRates map[model.AssetClass]decimal.Decimal
}

type instrumentsFile struct {
	MarginRates map[string]string `yaml:"margin_rates"`
	Instruments []struct {
		Symbol       string `yaml:"symbol"`
		Class        string `yaml:"class"`
		ContractSize string `yaml:"contract_size"`
		Precision    int32  `yaml:"precision"`
	} `yaml:"instruments"`
}

var defaultInstruments = []model.Instrument{
	{Symbol: "EUR/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "GBP/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "USD/JPY", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 3},
	{Symbol: "USD/CHF", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "AUD/USD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "USD/CAD", Class: model.Forex, ContractSize: decimal.NewFromInt(100000), Precision: 5},
	{Symbol: "BTC/USD", Class: model.Crypto, ContractSize: decimal.NewFromInt(1), Precision: 2},
	{Symbol: "ETH/USD", Class: model.Crypto, ContractSize: decimal.NewFromInt(1), Precision: 2},
	{Symbol: "XAU/USD", Class: model.Commodity, ContractSize: decimal.NewFromInt(100), Precision: 2},
}

// DefaultInstruments built-in catalog, engine default rate for every class
func DefaultInstruments() *Instruments {
	return &Instruments{
		Catalog:     model.NewCatalog(defaultInstruments),
		MarginRates: map[model.AssetClass]decimal.Decimal{},
	}
}

// LoadInstruments reads the YAML catalog at path, empty path gives the defaults
func LoadInstruments(path string) (*Instruments, error) {
	if path == "" {
		return DefaultInstruments(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config - LoadInstruments - ReadFile: %w", err)
	}
	instruments, err := ParseInstruments(data)
	if err != nil {
		return nil, fmt.Errorf("config - LoadInstruments - ParseInstruments %s: %w", path, err)
	}
	return instruments, nil
}

// ParseInstruments decodes and validates a YAML catalog
func ParseInstruments(data []byte) (*Instruments, error) {
	var file instrumentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config - ParseInstruments - Unmarshal: %w", err)
	}

	rates := make(map[model.AssetClass]decimal.Decimal, len(file.MarginRates))
	for class, value := range file.MarginRates {
		c := model.AssetClass(class)
		if !c.Valid() {
			return nil, fmt.Errorf("config - ParseInstruments: unknown class %q in margin_rates", class)
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("config - ParseInstruments - NewFromString %s: %w", class, err)
		}
		if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("config - ParseInstruments: margin rate of %s must be in (0, 1]", class)
		}
		rates[c] = rate
	}

	if len(file.Instruments) == 0 {
		return &Instruments{Catalog: model.NewCatalog(defaultInstruments), MarginRates: rates}, nil
	}

	list := make([]model.Instrument, 0, len(file.Instruments))
	seen := make(map[string]struct{}, len(file.Instruments))
	for _, i := range file.Instruments {
		if i.Symbol == "" {
			return nil, fmt.Errorf("config - ParseInstruments: instrument without symbol")
		}
		if _, ok := seen[i.Symbol]; ok {
			return nil, fmt.Errorf("config - ParseInstruments: duplicate instrument %s", i.Symbol)
		}
		seen[i.Symbol] = struct{}{}

		class := model.AssetClass(i.Class)
		if !class.Valid() {
			return nil, fmt.Errorf("config - ParseInstruments: unknown class %q of %s", i.Class, i.Symbol)
		}
		size, err := decimal.NewFromString(i.ContractSize)
		if err != nil {
			return nil, fmt.Errorf("config - ParseInstruments - NewFromString %s: %w", i.Symbol, err)
		}
		if !size.IsPositive() {
			return nil, fmt.Errorf("config - ParseInstruments: contract size of %s must be positive", i.Symbol)
		}
		if i.Precision < 0 || i.Precision > 10 {
			return nil, fmt.Errorf("config - ParseInstruments: precision of %s out of range", i.Symbol)
		}
		list = append(list, model.Instrument{Symbol: i.Symbol, Class: class, ContractSize: size, Precision: i.Precision})
	}
	return &Instruments{Catalog: model.NewCatalog(list), MarginRates: rates}, nil
}
