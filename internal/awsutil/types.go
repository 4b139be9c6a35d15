package awsutil

type InstanceTypeInfo struct {
	Name               string
	VCPUs              int32
	MemoryMiB          int64
	GPUName            string
	GPUCount           int32
	NetworkPerformance string
}

type SpotSearchResult struct {
	InstanceType       string
	VCPUs              int32
	MemoryMiB          int64
	AZ                 string
	Price              float64
	GPUName            string
	GPUCount           int32
	NetworkPerformance string
}

// SpotConfig is the fixed part of every instance the spot market launches.
type SpotConfig struct {
	AMIID         string
	AMIOwner      string
	AMIPattern    string
	KeyName       string
	SecurityGroup string
	DiskGB        int32
	Onstart       string
	NameTag       string
}
