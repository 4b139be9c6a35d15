package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	log "github.com/sirupsen/logrus"

	"github.com/emaland/gpulaunch/internal/offer"
)

// Columns of the offer table the spot market produces.
var SpotColumns = []string{offer.ColumnID, offer.ColumnGPU, "N", offer.ColumnPrice, "RAM", "vCPUs", "AZ"}

// SpotMarket rents GPU machines on the EC2 spot market. Reliability has
// no EC2 counterpart and is ignored when searching.
type SpotMarket struct {
	client *ec2.Client
	cfg    SpotConfig
	logger log.FieldLogger
}

func NewSpotMarket(client *ec2.Client, cfg SpotConfig, logger log.FieldLogger) *SpotMarket {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &SpotMarket{client: client, cfg: cfg, logger: logger}
}

func (m *SpotMarket) Name() string {
	return "ec2"
}

func (m *SpotMarket) Search(ctx context.Context, criteria offer.Criteria) (offer.SearchResult, error) {
	infos, err := FetchGPUInstanceTypes(ctx, m.client, criteria.GPUName, criteria.NumGPUs, float64(criteria.MinRAMGB))
	if err != nil {
		return offer.SearchResult{}, err
	}
	if len(infos) == 0 {
		return offer.SearchResult{Diagnostics: []string{
			fmt.Sprintf("no spot instance types with %dx %s", criteria.NumGPUs, criteria.GPUName),
		}}, nil
	}
	m.logger.WithField("types", len(infos)).Debug("ec2 gpu instance types")

	prices, err := FetchSpotPrices(ctx, m.client, infos, "")
	if err != nil {
		return offer.SearchResult{}, err
	}
	return offer.SearchResult{Offers: SpotOffers(prices)}, nil
}

// SpotOffers renders spot prices as offer rows in SpotColumns order.
func SpotOffers(results []SpotSearchResult) []offer.Offer {
	offers := make([]offer.Offer, 0, len(results))
	for _, r := range results {
		offers = append(offers, offer.Offer{
			Columns: SpotColumns,
			Fields: map[string]string{
				offer.ColumnID:    OfferID(r.InstanceType, r.AZ),
				offer.ColumnGPU:   r.GPUName,
				"N":               fmt.Sprintf("%dx", r.GPUCount),
				offer.ColumnPrice: fmt.Sprintf("%.4f", r.Price),
				"RAM":             fmt.Sprintf("%.1f", float64(r.MemoryMiB)/1024.0),
				"vCPUs":           fmt.Sprintf("%d", r.VCPUs),
				"AZ":              r.AZ,
			},
		})
	}
	return offers
}

func (m *SpotMarket) Launch(ctx context.Context, offerID string) (offer.Handle, error) {
	instanceType, az, err := ParseOfferID(offerID)
	if err != nil {
		return "", err
	}

	amiID, err := LookupAMI(ctx, m.cfg, m.client)
	if err != nil {
		return "", err
	}
	subnetID, err := LookupSubnet(ctx, m.client, az)
	if err != nil {
		return "", err
	}
	var sgID string
	if m.cfg.SecurityGroup != "" {
		sgID, err = LookupSecurityGroup(ctx, m.client, m.cfg.SecurityGroup)
		if err != nil {
			return "", err
		}
	}

	m.logger.WithFields(log.Fields{
		"type":   instanceType,
		"az":     az,
		"ami":    amiID,
		"subnet": subnetID,
	}).Info("launching spot instance")

	id, err := RunSpotInstance(ctx, m.client, m.cfg, amiID, instanceType, subnetID, sgID)
	if err != nil {
		return "", err
	}
	return offer.Handle(id), nil
}

func (m *SpotMarket) Destroy(ctx context.Context, handle offer.Handle) (offer.DestroyResult, error) {
	state, err := TerminateInstance(ctx, m.client, handle.String())
	if err != nil {
		return offer.DestroyResult{Reason: err.Error()}, err
	}
	return ClassifyTermination(state), nil
}

func ClassifyTermination(state types.InstanceStateName) offer.DestroyResult {
	switch state {
	case types.InstanceStateNameShuttingDown, types.InstanceStateNameTerminated:
		return offer.DestroyResult{OK: true}
	}
	return offer.DestroyResult{Reason: fmt.Sprintf("instance is %s", state)}
}
