// Package docs is the user guide of famfin, as shown by `famfin topic`.
//
// Each topic is an embedded markdown file starting with a level 1 title.
// readme.md is the entry point and lists the other topics.
package docs

import (
	"bufio"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed *.md
var files embed.FS

// All designates every topic in GetTopic.
const All = "*"

// GetTopic returns the markdown of topic, or of every topic for All.
func GetTopic(topic string) (string, error) {
	if topic == All {
		topics, err := GetAllTopics()
		if err != nil {
			return "", err
		}
		return GetTopics(topics...)
	}
	content, err := files.ReadFile(topic + ".md")
	if err != nil {
		topics, _ := GetAllTopics()
		return "", fmt.Errorf("no topic %q, try one of %s", topic, strings.Join(topics, ", "))
	}
	return string(content), nil
}

// GetTopics returns the markdown of topics, one after the other.
func GetTopics(topics ...string) (string, error) {
	var b strings.Builder
	for i, topic := range topics {
		content, err := GetTopic(topic)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(content)
	}
	return b.String(), nil
}

// GetAllTopics returns the names of the topics, readme excepted, sorted.
func GetAllTopics() ([]string, error) {
	matches, err := fs.Glob(files, "*.md")
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(matches))
	for _, m := range matches {
		if name := strings.TrimSuffix(m, ".md"); name != "readme" {
			topics = append(topics, name)
		}
	}
	return topics, nil
}

// Title returns the title of topic, the text of its first line.
func Title(topic string) (string, error) {
	content, err := GetTopic(topic)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "# ")), nil
}

// Listed returns the topics the readme links to, in order.
func Listed() []string {
	content, _ := files.ReadFile("readme.md")
	var topics []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		item, ok := strings.CutPrefix(scanner.Text(), "* ")
		if !ok {
			continue
		}
		if name, _, ok := strings.Cut(item, ":"); ok {
			topics = append(topics, strings.TrimSpace(name))
		}
	}
	return topics
}
