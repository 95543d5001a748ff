package genesis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orchai/crypto"
)

func testSpec() *Spec {
	return &Spec{
		GenesisTime: "2024-01-01T00:00:00Z",
		ChainID:     "orchai-test",
		Owner:       "@owner",
		Collector:   "@collector",
		Stable: TokenSpec{
			Name: "Stable", Symbol: "USD", Decimals: 6,
			Alloc: map[string]string{
				"@owner":  "2000000",
				"@alice":  "10000000",
				"@bidder": "200000",
			},
		},
		RewardToken: TokenSpec{Name: "Orchai", Symbol: "ORC", Decimals: 6},
		Market: MarketSpec{
			AncEmissionRate: "10",
			MaxBorrowFactor: "0.95",
		},
		InterestModel: InterestModelSpec{BaseRate: "0.00001", InterestMultiplier: "0.0001"},
		DistributionModel: DistributionModelSpec{
			EmissionCap:         "100",
			EmissionFloor:       "1",
			IncrementMultiplier: "1.1",
			DecrementMultiplier: "0.9",
		},
		Overseer: OverseerSpec{
			EpochPeriod:              10,
			ThresholdDepositRate:     "0.000001",
			TargetDepositRate:        "0.000002",
			BufferDistributionFactor: "0.1",
			AncPurchaseFactor:        "0.1",
			PriceTimeframe:           3600,
		},
		Liquidation: LiquidationSpec{
			SafeRatio:            "0.8",
			BidFee:               "0.01",
			MaxPremiumRate:       "0.3",
			LiquidationThreshold: "200",
			PriceTimeframe:       3600,
		},
		Distributor: DistributorSpec{SpendLimit: "1000000", Reserve: "1000000"},
		Collaterals: []CollateralSpec{{
			Token:        TokenSpec{Name: "Bonded Luna", Symbol: "BLUNA", Decimals: 6, Alloc: map[string]string{"@bob": "100000"}},
			MaxLtv:       "0.5",
			Feeder:       "@feeder",
			InitialPrice: "2",
		}},
	}
}

func TestLoadSpec(t *testing.T) {
	data, err := json.MarshalIndent(testSpec(), "", "  ")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "genesis.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), spec.GenesisTimestamp().UTC())
	require.Equal(t, uint64(1), spec.Height())
	require.Equal(t, "2000000", spec.Stable.allocated(crypto.AccountAddress("owner")).String())
	require.Equal(t, "0.5", spec.Collaterals[0].maxLtv.String())
	require.NotNil(t, spec.Collaterals[0].price)
}

func TestParseSpecRejectsUnknownFields(t *testing.T) {
	_, err := ParseSpec([]byte(`{"genesisTime":"2024-01-01T00:00:00Z","validators":[]}`))
	require.ErrorContains(t, err, "unknown field")
}

func TestSpecValidation(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Spec)
		want   string
	}{
		"missing time":      {func(s *Spec) { s.GenesisTime = "" }, "genesisTime must be provided"},
		"bad time":          {func(s *Spec) { s.GenesisTime = "yesterday" }, "invalid genesisTime"},
		"missing chain":     {func(s *Spec) { s.ChainID = " " }, "chainId must be provided"},
		"bad owner":         {func(s *Spec) { s.Owner = "nhb1qqqq" }, "owner"},
		"empty alias":       {func(s *Spec) { s.Collector = "@" }, "collector"},
		"duplicate symbol":  {func(s *Spec) { s.RewardToken.Symbol = "usd" }, "duplicate symbol"},
		"unfunded owner":    {func(s *Spec) { s.Stable.Alloc["@owner"] = "999999" }, "initial market deposit"},
		"bad amount":        {func(s *Spec) { s.Stable.Alloc["@alice"] = "-5" }, "invalid amount"},
		"borrow factor":     {func(s *Spec) { s.Market.MaxBorrowFactor = "1.5" }, "maxBorrowFactor"},
		"floor above cap":   {func(s *Spec) { s.DistributionModel.EmissionFloor = "101" }, "emissionFloor"},
		"zero epoch":        {func(s *Spec) { s.Overseer.EpochPeriod = 0 }, "epochPeriod"},
		"missing safe":      {func(s *Spec) { s.Liquidation.SafeRatio = "" }, "safeRatio must be provided"},
		"missing limit":     {func(s *Spec) { s.Distributor.SpendLimit = "" }, "spendLimit"},
		"ltv of one":        {func(s *Spec) { s.Collaterals[0].MaxLtv = "1" }, "maxLtv must be below 1"},
		"missing feeder":    {func(s *Spec) { s.Collaterals[0].Feeder = "" }, "feeder"},
		"precise decimal":   {func(s *Spec) { s.InterestModel.BaseRate = "0.0000000000000000001" }, "baseRate"},
		"oversized decimal": {func(s *Spec) { s.Stable.Decimals = 19 }, "decimals"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			spec := testSpec()
			tc.mutate(spec)
			require.ErrorContains(t, spec.Validate(), tc.want)
		})
	}
	require.NoError(t, testSpec().Validate())
}

func TestCollectorDefaultsToOwner(t *testing.T) {
	spec := testSpec()
	spec.Collector = ""
	require.NoError(t, spec.Validate())
	dep := spec.Deployment()
	require.Equal(t, dep.Owner, dep.Collector)
}

func TestDeploymentAddressesAreDerived(t *testing.T) {
	spec := testSpec()
	require.NoError(t, spec.Validate())
	dep := spec.Deployment()
	owner := crypto.AccountAddress("owner")
	require.Equal(t, owner, dep.Owner)
	require.Equal(t, crypto.ContractAddress(owner, LabelMarket), dep.Market)
	require.Equal(t, crypto.ContractAddress(dep.Market, "aterra"), dep.ATerra)
	require.Len(t, dep.Collaterals, 1)
	require.Equal(t, crypto.ContractAddress(owner, "custody/BLUNA"), dep.Collaterals[0].Custody)
	require.Equal(t, dep, spec.Deployment())
}

func TestParseAccount(t *testing.T) {
	alice := crypto.AccountAddress("alice")
	got, err := ParseAccount("@alice")
	require.NoError(t, err)
	require.Equal(t, alice, got)

	got, err = ParseAccount(" " + alice.String() + " ")
	require.NoError(t, err)
	require.Equal(t, alice, got)

	_, err = ParseAccount("")
	require.Error(t, err)
}
