package agentshandler

import (
	"os"
	"strings"
)

type fileInfo struct {
	Name     string `json:"name"`
	SizeB    int64  `json:"size_bytes"`
	Modified string `json:"modified"`
}

// listSessionFiles lists regular files directly under a session directory.
// A synthetic tmp-store key ("tmp:<uuid>") never corresponds to a real
// directory, so it simply yields no files.
func listSessionFiles(dir string) ([]fileInfo, error) {
	if strings.HasPrefix(dir, "tmp:") {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []fileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, fileInfo{
			Name:     e.Name(),
			SizeB:    info.Size(),
			Modified: info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out, nil
}
