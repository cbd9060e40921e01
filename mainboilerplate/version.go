package mainboilerplate

// Version and BuildDate of the program, which are set at build time with:
//
//	-ldflags "-X go.feedcache.dev/core/mainboilerplate.Version=... -X go.feedcache.dev/core/mainboilerplate.BuildDate=..."
var (
	Version   = "development"
	BuildDate = "unknown"
)
