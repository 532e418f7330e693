package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version 表示一个语义版本，不支持预发布和构建后缀
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse 解析版本字符串，支持 "v1.2.3" 或 "1.2.3" 格式，其他格式返回 ok=false
func Parse(version string) (v Version, ok bool) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return Version{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, false
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

// MustParse 用于常量，解析失败时 panic
func MustParse(version string) Version {
	v, ok := Parse(version)
	if !ok {
		panic("semver: invalid version " + strconv.Quote(version))
	}
	return v
}

func (v Version) GreaterEqual(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Patch >= other.Patch
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}
