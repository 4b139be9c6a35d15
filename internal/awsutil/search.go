package awsutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// FetchGPUInstanceTypes lists current-generation spot-capable x86 types
// with at least one GPU. gpuName matches case-insensitively ignoring
// underscores, dashes and spaces; empty matches any GPU. gpuCount of 0
// matches any count.
func FetchGPUInstanceTypes(ctx context.Context, client *ec2.Client, gpuName string, gpuCount int, minMemGiB float64) ([]InstanceTypeInfo, error) {
	var results []InstanceTypeInfo
	minMemMiB := int64(minMemGiB * 1024)
	want := NormalizeGPUName(gpuName)

	input := &ec2.DescribeInstanceTypesInput{
		Filters: []types.Filter{
			{Name: aws.String("supported-usage-class"), Values: []string{"spot"}},
			{Name: aws.String("current-generation"), Values: []string{"true"}},
			{Name: aws.String("processor-info.supported-architecture"), Values: []string{"x86_64"}},
		},
	}

	paginator := ec2.NewDescribeInstanceTypesPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing instance types: %w", err)
		}
		for _, it := range page.InstanceTypes {
			info, ok := gpuTypeInfo(it)
			if !ok {
				continue
			}
			if info.MemoryMiB < minMemMiB {
				continue
			}
			if want != "" && NormalizeGPUName(info.GPUName) != want {
				continue
			}
			if gpuCount > 0 && int(info.GPUCount) != gpuCount {
				continue
			}
			results = append(results, info)
		}
	}
	return results, nil
}

func gpuTypeInfo(it types.InstanceTypeInfo) (InstanceTypeInfo, bool) {
	if it.GpuInfo == nil || len(it.GpuInfo.Gpus) == 0 {
		return InstanceTypeInfo{}, false
	}
	info := InstanceTypeInfo{Name: string(it.InstanceType)}
	if it.VCpuInfo != nil && it.VCpuInfo.DefaultVCpus != nil {
		info.VCPUs = *it.VCpuInfo.DefaultVCpus
	}
	if it.MemoryInfo != nil && it.MemoryInfo.SizeInMiB != nil {
		info.MemoryMiB = *it.MemoryInfo.SizeInMiB
	}
	gpu := it.GpuInfo.Gpus[0]
	if gpu.Name != nil {
		info.GPUName = *gpu.Name
	}
	for _, g := range it.GpuInfo.Gpus {
		if g.Count != nil {
			info.GPUCount += *g.Count
		}
	}
	if it.NetworkInfo != nil && it.NetworkInfo.NetworkPerformance != nil {
		info.NetworkPerformance = *it.NetworkInfo.NetworkPerformance
	}
	return info, true
}

// NormalizeGPUName folds "RTX_3090", "rtx-3090" and "RTX 3090" together.
func NormalizeGPUName(name string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(name))
}

// FetchSpotPrices returns the latest Linux spot price per (type, AZ),
// cheapest first.
func FetchSpotPrices(ctx context.Context, client *ec2.Client, instanceTypes []InstanceTypeInfo, azFilter string) ([]SpotSearchResult, error) {
	infoMap := map[string]InstanceTypeInfo{}
	var typeNames []types.InstanceType
	for _, it := range instanceTypes {
		infoMap[it.Name] = it
		typeNames = append(typeNames, types.InstanceType(it.Name))
	}

	// The API takes roughly 100 instance types per call.
	type priceKey struct {
		itype string
		az    string
	}
	latest := map[priceKey]types.SpotPrice{}
	startTime := time.Now().Add(-1 * time.Hour)

	batchSize := 100
	for i := 0; i < len(typeNames); i += batchSize {
		end := i + batchSize
		if end > len(typeNames) {
			end = len(typeNames)
		}
		batch := typeNames[i:end]

		input := &ec2.DescribeSpotPriceHistoryInput{
			InstanceTypes:       batch,
			StartTime:           &startTime,
			ProductDescriptions: []string{"Linux/UNIX"},
		}

		paginator := ec2.NewDescribeSpotPriceHistoryPaginator(client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("describing spot price history: %w", err)
			}
			for _, sp := range page.SpotPriceHistory {
				if sp.AvailabilityZone == nil || sp.Timestamp == nil || sp.SpotPrice == nil {
					continue
				}
				if azFilter != "" && *sp.AvailabilityZone != azFilter {
					continue
				}
				k := priceKey{string(sp.InstanceType), *sp.AvailabilityZone}
				existing, ok := latest[k]
				if !ok || sp.Timestamp.After(*existing.Timestamp) {
					latest[k] = sp
				}
			}
		}
	}

	var results []SpotSearchResult
	for k, sp := range latest {
		info := infoMap[k.itype]
		price, err := strconv.ParseFloat(*sp.SpotPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("spot price %q for %s in %s: %w", *sp.SpotPrice, k.itype, k.az, err)
		}
		results = append(results, SpotSearchResult{
			InstanceType:       k.itype,
			VCPUs:              info.VCPUs,
			MemoryMiB:          info.MemoryMiB,
			AZ:                 k.az,
			Price:              price,
			GPUName:            info.GPUName,
			GPUCount:           info.GPUCount,
			NetworkPerformance: info.NetworkPerformance,
		})
	}
	SortByPrice(results)
	return results, nil
}

// SortByPrice orders cheapest first, then by type and AZ so equal prices
// come out in a stable order.
func SortByPrice(results []SpotSearchResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.InstanceType != b.InstanceType {
			return a.InstanceType < b.InstanceType
		}
		return a.AZ < b.AZ
	})
}
