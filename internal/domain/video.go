package domain

// VideoFile 描述一次扫描得到的视频文件（只做 stat，不读内容）。
//
// 不变量：
// - Name 是不含目录的文件名，保留原始大小写
// - Ext 是小写扩展名（含前导 '.'），且属于允许列表
type VideoFile struct {
	Name    string
	Ext     string // ".mp4"
	Size    int64
	ModUnix int64
}

// Names 按原顺序返回文件名列表（即写入 videoList 的内容）。
func Names(files []VideoFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

// TotalSize 返回所有文件大小之和（字节）。
func TotalSize(files []VideoFile) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}
