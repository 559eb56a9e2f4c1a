package parser

import "os"

func openText(filePath string) (*pages, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return &pages{texts: []string{string(data)}}, nil
}
