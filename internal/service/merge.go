package service

// ShallowMerge 浅合并：update 中的每个 key 覆盖或新增到 stored 顶层，
// update 未提及的 key 原样保留。返回 stored（原地修改）
func ShallowMerge(stored, update map[string]any) map[string]any {
	if stored == nil {
		stored = map[string]any{}
	}
	for k, v := range update {
		stored[k] = v
	}
	return stored
}

// DeepMerge 递归深合并：两边同 key 且都是 map 时递归下钻，否则 update 的值
// 整体替换。用于 atributos 的嵌套子类型块更新——只更新某个嵌套块时不抹掉
// 兄弟嵌套块
func DeepMerge(stored, update map[string]any) map[string]any {
	if stored == nil {
		stored = map[string]any{}
	}
	for k, v := range update {
		if existing, ok := stored[k]; ok {
			existingMap, okA := existing.(map[string]any)
			updateMap, okB := v.(map[string]any)
			if okA && okB {
				stored[k] = DeepMerge(existingMap, updateMap)
				continue
			}
		}
		stored[k] = v
	}
	return stored
}
