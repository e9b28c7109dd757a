// Package factory 提供视频生成器的注册表与工厂，按不区分大小写的模型名
// （veo-2、veo-3、veo-3.1、p-video、p-video-draft）创建 video.Generator，
// 未知名称返回 CONFIGURATION 错误，凭证缺失的构造错误原样透传。
package factory
