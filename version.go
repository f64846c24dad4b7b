package supportflow

// Version is set at build time with -ldflags "-X github.com/ritotombe/supportflow.Version=...".
var Version = "dev"
