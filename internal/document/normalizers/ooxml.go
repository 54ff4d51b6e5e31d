// SPDX-License-Identifier: Apache-2.0

package normalizers

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// maxPartSize bounds how much of a single container part is decompressed.
const maxPartSize = 64 << 20

var (
	exprRelationship = xpath.MustCompile("//*[local-name()='Relationship']")
	exprText         = xpath.MustCompile(".//*[local-name()='t']")
)

// container wraps an Office Open XML zip package.
type container struct {
	files map[string]*zip.File
}

func openContainer(content []byte) (*container, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open zip container: %w", err)
	}
	c := &container{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		c.files[f.Name] = f
	}
	return c, nil
}

// hasPart reports whether content is a zip package holding the named part.
func hasPart(content []byte, name string) bool {
	if !bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		return false
	}
	c, err := openContainer(content)
	if err != nil {
		return false
	}
	_, ok := c.files[name]
	return ok
}

func (c *container) read(name string) ([]byte, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", name, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("part %s exceeds %d bytes", name, maxPartSize)
	}
	return data, nil
}

func (c *container) parseXML(name string) (*xmlquery.Node, error) {
	data, err := c.read(name)
	if err != nil {
		return nil, err
	}
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return root, nil
}

// relationships maps relationship ids to part names resolved against base.
// A missing relationships part yields an empty map.
func (c *container) relationships(relsPart, base string) (map[string]string, error) {
	rels := map[string]string{}
	if _, ok := c.files[relsPart]; !ok {
		return rels, nil
	}
	root, err := c.parseXML(relsPart)
	if err != nil {
		return nil, err
	}
	for _, rel := range xmlquery.QuerySelectorAll(root, exprRelationship) {
		id, target := attr(rel, "Id"), attr(rel, "Target")
		if id == "" || target == "" {
			continue
		}
		if strings.HasPrefix(target, "/") {
			rels[id] = strings.TrimPrefix(target, "/")
		} else {
			rels[id] = path.Join(base, target)
		}
	}
	return rels, nil
}

// attr returns the value of the attribute with the given local name.
func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// textOf concatenates every descendant text run of n.
func textOf(n *xmlquery.Node) string {
	var sb strings.Builder
	for _, t := range xmlquery.QuerySelectorAll(n, exprText) {
		sb.WriteString(t.InnerText())
	}
	return sb.String()
}

// elements returns the element children of n with the given local name.
func elements(n *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == local {
			out = append(out, child)
		}
	}
	return out
}
