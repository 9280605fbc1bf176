package version

import (
	"runtime/debug"
)

type Info struct {
	Commit string `json:"commit"`
	Time   string `json:"time"`
	Go     string `json:"go"`
}

// Version is the build info of the running binary.
var Version = func() Info {
	v := Info{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	v.Go = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.Commit = setting.Value
		case "vcs.time":
			v.Time = setting.Value
		}
	}
	return v
}()

func (i Info) String() string {
	if i.Commit == "" {
		return "devel"
	}
	if len(i.Commit) > 7 {
		return i.Commit[:7] + " " + i.Time
	}
	return i.Commit + " " + i.Time
}
